package barcode

import "fmt"

var banks = map[int]string{
	1:   "Banco do Brasil",
	237: "Bradesco",
	341: "Itaú",
	104: "Caixa Econômica Federal",
	33:  "Santander",
	422: "Safra",
	745: "Citibank",
	208: "BTG Pactual",
}

// BankName looks up a febraban bank code.
func BankName(id int) (string, error) {
	name, ok := banks[id]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrBankNotFound, id)
	}
	return name, nil
}

// BankLabel renders the bank as "[id] - name".
func BankLabel(id int) (string, error) {
	name, err := BankName(id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[%d] - %s", id, name), nil
}
