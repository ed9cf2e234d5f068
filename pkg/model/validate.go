package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateStruct 按 validate 标签校验结构体，返回可读的错误
func ValidateStruct(v interface{}) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s 不能为空", field)
	case "gt":
		return fmt.Sprintf("%s 必须大于 %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s 不满足 %s", field, fe.Tag())
	}
}

// ValidateDemand 校验需求记录（数量为正且型号参考有效）
func ValidateDemand(d *DemandRecord) error {
	if d == nil {
		return errors.New("需求为空")
	}
	return ValidateStruct(d)
}

// ValidateLine 校验产线
func ValidateLine(l *Line) error {
	if l == nil {
		return errors.New("产线为空")
	}
	return ValidateStruct(l)
}
