package enums

// PaymentMethod is recorded on the order; actual payment capture happens
// outside this service, which only flips the paid flag.
type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCash   PaymentMethod = "cash"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodOnline || m == PaymentMethodCash
}
