package domain

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

func (a ShippingAddress) Validate() error {
	err := validatorInstance().Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
		}
		return Validationf("shipping address: %s", strings.Join(fields, ", "))
	}
	return Validationf("shipping address: %v", err)
}

func (m PaymentMethod) Validate() error {
	switch m {
	case PaymentCOD, PaymentCard:
		return nil
	}
	return Validationf("unsupported payment method %q", m)
}

func (m ShippingMethod) Validate() error {
	switch m {
	case ShippingStandard, ShippingExpress:
		return nil
	}
	return Validationf("unsupported shipping method %q", m)
}
