// file: internals/features/school/exams/aggregation/value.go
package aggregation

import (
	"strconv"

	"github.com/bytedance/sonic"
)

// ValueKind tells a real measured number apart from the sentinels used
// when there is nothing to measure.
type ValueKind uint8

const (
	KindNumber ValueKind = iota
	KindNotApplicable
	KindAbsent
	KindNoData
)

// Display tokens, also used as the JSON form of the sentinels.
const (
	TokenNotApplicable = "NA"
	TokenAbsent        = "AB"
	TokenNoData        = "-"
)

type Value struct {
	Kind   ValueKind
	Number float64
}

func Num(v float64) Value     { return Value{Kind: KindNumber, Number: v} }
func NotApplicable() Value    { return Value{Kind: KindNotApplicable} }
func Absent() Value           { return Value{Kind: KindAbsent} }
func NoData() Value           { return Value{Kind: KindNoData} }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// OrZero folds every sentinel to 0; used for totals only.
func (v Value) OrZero() float64 {
	if v.Kind == KindNumber {
		return v.Number
	}
	return 0
}

func (v Value) String() string {
	switch v.Kind {
	case KindNotApplicable:
		return TokenNotApplicable
	case KindAbsent:
		return TokenAbsent
	case KindNoData:
		return TokenNoData
	default:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindNumber {
		return sonic.Marshal(v.Number)
	}
	return sonic.Marshal(v.String())
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var n float64
	if err := sonic.Unmarshal(b, &n); err == nil {
		*v = Num(n)
		return nil
	}
	var s string
	if err := sonic.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case TokenNotApplicable:
		*v = NotApplicable()
	case TokenAbsent:
		*v = Absent()
	default:
		*v = NoData()
	}
	return nil
}
