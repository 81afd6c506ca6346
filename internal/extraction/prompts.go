package extraction

import "strings"

// writeReceiptSchema writes the field schema and defaulting rules shared by the
// single-document prompts.
func writeReceiptSchema(b *strings.Builder) {
	b.WriteString("{\n")
	b.WriteString("    \"merchantName\": \"business/company name\",\n")
	b.WriteString("    \"amount\": number,\n")
	b.WriteString("    \"currency\": \"currency code\",\n")
	b.WriteString("    \"transactionDate\": \"YYYY-MM-DD\",\n")
	b.WriteString("    \"category\": \"category name\",\n")
	b.WriteString("    \"description\": \"transaction description\",\n")
	b.WriteString("    \"invoiceNumber\": \"invoice/receipt number\",\n")
	b.WriteString("    \"taxAmount\": number,\n")
	b.WriteString("    \"totalAmount\": number,\n")
	b.WriteString("    \"paymentMethod\": \"payment method used\",\n")
	b.WriteString("    \"items\": [\"list of items purchased\"]\n")
	b.WriteString("}\n\n")
	writeCategoryRule(b)
	b.WriteString("Return only valid JSON with these exact field names. ")
	b.WriteString("If you can't find a field, use empty string \"\" for text or 0.0 for numbers.")
}

func writeCategoryRule(b *strings.Builder) {
	b.WriteString("For the category, classify it as one of: ")
	b.WriteString(strings.Join(Taxonomy[:len(Taxonomy)-1], ", "))
	b.WriteString(", or ")
	b.WriteString(CategoryOther)
	b.WriteString(".\n\n")
}

// ReceiptPrompt asks the model to read an attached receipt image.
func ReceiptPrompt() string {
	var b strings.Builder
	b.WriteString("Analyze this receipt image and extract the following information in JSON format:\n")
	writeReceiptSchema(&b)
	return b.String()
}

// DocumentPrompt asks the model to read the text of a bill, invoice or statement.
func DocumentPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Analyze this PDF document (bill, invoice, or financial statement) and extract the following information in JSON format:\n")
	writeReceiptSchema(&b)
	b.WriteString("\n\nDocument content:\n")
	b.WriteString(text)
	return b.String()
}

// StatementPrompt asks the model for every transaction of a bank statement.
// An empty text means the statement is attached as a file.
func StatementPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Analyze this bank statement and extract all transactions as a JSON array:\n")
	b.WriteString("[\n")
	b.WriteString("    {\n")
	b.WriteString("        \"date\": \"YYYY-MM-DD\",\n")
	b.WriteString("        \"description\": \"transaction description\",\n")
	b.WriteString("        \"amount\": number,\n")
	b.WriteString("        \"type\": \"INCOME or EXPENSE\"\n")
	b.WriteString("    }\n")
	b.WriteString("]\n\n")
	b.WriteString("Use a positive amount for money in and a negative amount for money out.\n")
	b.WriteString("Return only a valid JSON array. Do NOT wrap the response in code fences.")
	if text != "" {
		b.WriteString("\n\nStatement content:\n")
		b.WriteString(text)
	}
	return b.String()
}
