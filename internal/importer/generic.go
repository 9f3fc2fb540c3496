package importer

// NewGenericParser reads CSV files with an English header row. Column order
// is free; only date and amount are required. The delimiter is sniffed.
func NewGenericParser() Parser {
	return &columnParser{
		format:          "generic",
		dateLayouts:     []string{"2006-01-02", "02-01-2006", "02.01.2006", "2.1.2006", "01/02/2006"},
		defaultCurrency: "CZK",
		aliases: map[string]field{
			"id":                   fieldID,
			"transaction_id":       fieldID,
			"date":                 fieldDate,
			"transaction_date":     fieldDate,
			"amount":               fieldAmount,
			"currency":             fieldCurrency,
			"reference":            fieldReference,
			"payer_reference":      fieldReference,
			"variable_symbol":      fieldReference,
			"vs":                   fieldReference,
			"name":                 fieldCounterpartyName,
			"counterparty_name":    fieldCounterpartyName,
			"account":              fieldCounterpartyAccount,
			"counterparty_account": fieldCounterpartyAccount,
			"bank":                 fieldCounterpartyBank,
			"bank_code":            fieldCounterpartyBank,
			"counterparty_bank":    fieldCounterpartyBank,
			"message":              fieldMessage,
			"note":                 fieldMessage,
		},
	}
}
