package enums

// PaymentMethod records how an order was settled.
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCash, PaymentMethodCard:
		return true
	}
	return false
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse("payment method", []PaymentMethod{PaymentMethodCash, PaymentMethodCard}, value)
}
