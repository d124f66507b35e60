package term

import (
	"github.com/reglet-dev/reglet-nif/domain/entities"
	"github.com/zclconf/go-cty/cty"
)

// Reason converts an error detail into the exception reason raised to the host.
func Reason(d *entities.ErrorDetail) cty.Value {
	if d == nil {
		d = entities.NewErrorDetail(entities.ErrorTypeInternal, "unknown error")
	}
	attrs := map[string]cty.Value{
		"type":     cty.StringVal(d.Type),
		"message":  cty.StringVal(d.Message),
		"code":     cty.StringVal(d.Code),
		"function": cty.StringVal(d.Function),
	}
	if len(d.Stack) > 0 {
		attrs["stack"] = cty.StringVal(string(d.Stack))
	}
	return cty.ObjectVal(attrs)
}

// DetailFromReason converts a raised reason back into an error detail.
// Reasons not produced by Reason are reported with type "error" and the
// reason rendered as JSON in the message.
func DetailFromReason(v cty.Value) *entities.ErrorDetail {
	if v.IsKnown() && !v.IsNull() && v.Type().IsObjectType() &&
		v.Type().HasAttribute("type") && v.Type().HasAttribute("message") {
		d := &entities.ErrorDetail{
			Type:     attrString(v, "type"),
			Message:  attrString(v, "message"),
			Code:     attrString(v, "code"),
			Function: attrString(v, "function"),
		}
		if stack := attrString(v, "stack"); stack != "" {
			d.Stack = []byte(stack)
		}
		return d
	}

	msg := v.GoString()
	if v.IsWhollyKnown() {
		if b, err := ToJSON(v); err == nil {
			msg = string(b)
		}
	}
	return entities.NewErrorDetail(entities.ErrorTypeError, msg)
}

func attrString(v cty.Value, name string) string {
	if !v.Type().HasAttribute(name) {
		return ""
	}
	a := v.GetAttr(name)
	if !a.IsKnown() || a.IsNull() || !a.Type().Equals(cty.String) {
		return ""
	}
	return a.AsString()
}
