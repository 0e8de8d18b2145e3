package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

// Transaction directions as Notion select options.
const (
	directionIncome  = "Income"
	directionExpense = "Expense"
)

// TransactionToProperties converts one extracted transaction to Notion page
// properties. Amounts are always positive; the Direction select carries the
// sign.
func TransactionToProperties(tx extract.Transaction, direction, currency string) notionapi.Properties {
	props := notionapi.Properties{
		"Description": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: tx.Description},
				},
			},
		},
		"Direction": notionapi.SelectProperty{
			Select: notionapi.Option{Name: direction},
		},
	}

	amount, _ := tx.Amount.Float64()
	props["Amount"] = notionapi.NumberProperty{Number: amount}

	if currency != "" {
		props["Currency"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: currency},
		}
	}

	if parsed := extract.ParseStatementDate(tx.Date); parsed.Year() > 1900 {
		d := notionapi.Date(time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC))
		props["Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}

	if tx.Reference != "" {
		props["Reference"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: tx.Reference},
				},
			},
		}
	}

	return props
}
