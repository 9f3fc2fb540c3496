package importer

// NewFioParser reads the Fio banka CSV statement export: semicolon separated,
// a few "key";"value" preamble lines, then a Czech header row.
func NewFioParser() Parser {
	return &columnParser{
		format:          "fio",
		comma:           ';',
		headerPrefix:    "ID pohybu",
		dateLayouts:     []string{"02.01.2006", "2.1.2006"},
		defaultCurrency: "CZK",
		aliases: map[string]field{
			"id pohybu":           fieldID,
			"datum":               fieldDate,
			"objem":               fieldAmount,
			"měna":                fieldCurrency,
			"vs":                  fieldReference,
			"název protiúčtu":     fieldCounterpartyName,
			"protiúčet":           fieldCounterpartyAccount,
			"kód banky":           fieldCounterpartyBank,
			"zpráva pro příjemce": fieldMessage,
		},
	}
}
