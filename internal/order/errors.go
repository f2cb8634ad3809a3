package order

import "fmt"

// ValidationError 表示用户输入违反了本地或交易所下发的约束。
// 该类错误永不重试，Suggestion 在可计算时给出最接近的合法值。
type ValidationError struct {
	Field      string
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s: %s，建议值: %s", e.Field, e.Message, e.Suggestion)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErrorf(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UnsupportedKindError 表示抽象订单类型没有原生对应，
// 需要通过执行策略拆解为多笔原生订单。
type UnsupportedKindError struct {
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("订单类型 %s 没有原生对应，需通过执行策略拆单", e.Kind)
}
