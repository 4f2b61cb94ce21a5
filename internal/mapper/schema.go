package mapper

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// 每个实体的 payload 校验规则。入队与处理前都会过一遍，
// 把注定被遗留平台 4xx 拒绝的载荷在发起 HTTP 调用之前拦下来。
var entityRules = map[string]map[string]interface{}{
	"user": {
		"name":             "omitempty,max=128",
		"email":            "omitempty,email",
		"host_account_id":  "omitempty,max=64",
		"guest_account_id": "omitempty,max=64",
	},
	"account_host": {
		"user_id":    "omitempty,max=64",
		"currency":   "omitempty,len=3",
		"payout_day": "omitempty,min=0,max=6",
	},
	"account_guest": {
		"user_id":    "omitempty,max=64",
		"currency":   "omitempty,len=3",
		"payout_day": "omitempty,min=0,max=6",
	},
	"listing": {
		"host_account_id": "omitempty,max=64",
		"title":           "omitempty,max=128",
		"nightly_cents":   "omitempty,min=0",
		"check_in_day":    "omitempty,min=0,max=6",
		"active":          "omitempty",
	},
	"booking": {
		"listing_id":       "omitempty,max=64",
		"guest_account_id": "omitempty,max=64",
		"start_date":       "omitempty",
		"end_date":         "omitempty",
		"amount_cents":     "omitempty,min=0",
		"status":           "omitempty,min=0,max=2",
	},
}

// ValidatePayload 按实体静态规则校验 payload；未知实体或规则冲突视为致命错误
func ValidatePayload(entity string, payload map[string]interface{}) error {
	rules, ok := entityRules[entity]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	for k := range payload {
		if _, ok := rules[k]; !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, entity, k)
		}
	}
	errs := validate.ValidateMap(payload, toRuleMap(rules, payload))
	if len(errs) > 0 {
		for field, err := range errs {
			return fmt.Errorf("%w: field %s.%s: %v", ErrInvalidPayload, entity, field, err)
		}
	}
	return nil
}

// toRuleMap 只校验 payload 中实际出现的字段，缺省字段不强制
func toRuleMap(rules map[string]interface{}, payload map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k := range payload {
		if r, ok := rules[k]; ok {
			out[k] = r
		}
	}
	return out
}
