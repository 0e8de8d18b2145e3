package extract

import "fmt"

// extractionPrompt wraps one chunk of statement text with the schema
// instructions. The JSON shape here is the wire contract the response parser
// and transform layer depend on, regardless of which model provider runs it.
const extractionPrompt = `You are an expert financial data analyst. Extract ALL transactions from this bank statement text and organize them into a structured JSON format.

IMPORTANT INSTRUCTIONS:
1. Find ALL transactions - don't miss any debits, credits, transfers, or fees
2. Look for date patterns like DD/MM/YYYY, DD-MM-YYYY, DD MMM YYYY
3. Look for amount patterns with currency symbols or decimal points
4. Extract account details (name, account number, currency, balance)
5. Categorize transactions as either "income" (credits/deposits) or "expenses" (debits/withdrawals)
6. Include opening and closing balances if available

REQUIRED JSON FORMAT:
{
  "account_details": {
    "name": "Account holder name",
    "account_number": "Account number",
    "currency": "Currency (e.g., LKR, USD)",
    "statement_date": "Statement date range"
  },
  "final_balance": 0.00,
  "transactions": {
    "income": [
      {
        "date": "DDMMMYYYY format",
        "description": "Transaction description",
        "amount": 0.00
      }
    ],
    "expenses": [
      {
        "date": "DDMMMYYYY format",
        "description": "Transaction description",
        "amount": 0.00
      }
    ]
  }
}

Bank Statement Text:
%s

Return ONLY the JSON object, no markdown formatting or explanatory text.`

// BuildPrompt embeds the chunk text verbatim into the instruction prompt.
func BuildPrompt(chunkText string) string {
	return fmt.Sprintf(extractionPrompt, chunkText)
}
