package mapper

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownEntity  = errors.New("unknown entity type")
	ErrUnknownField   = errors.New("unknown field for entity")
	ErrInvalidPayload = errors.New("invalid payload")
)

// fieldRule 单个字段的外部名与可选的值变换
type fieldRule struct {
	external  string
	transform func(interface{}) (interface{}, error)
}

// 内部实体名 -> 遗留平台表名
var entityTables = map[string]string{
	"user":          "tbl_Users",
	"account_host":  "tbl_HostAccounts",
	"account_guest": "tbl_GuestAccounts",
	"listing":       "tbl_Listings",
	"booking":       "tbl_Bookings",
}

// 内部字段名 -> 外部字段规则（静态字典，保持确定性）
var entityFields = map[string]map[string]fieldRule{
	"user": {
		"name":             {external: "Name"},
		"email":            {external: "Email"},
		"host_account_id":  {external: "HostAccountID"},
		"guest_account_id": {external: "GuestAccountID"},
	},
	"account_host": {
		"user_id":    {external: "UserID"},
		"currency":   {external: "Currency"},
		"payout_day": {external: "PayoutDay", transform: dayShift},
	},
	"account_guest": {
		"user_id":    {external: "UserID"},
		"currency":   {external: "Currency"},
		"payout_day": {external: "PayoutDay", transform: dayShift},
	},
	"listing": {
		"host_account_id": {external: "HostAccountID"},
		"title":           {external: "Title"},
		"nightly_cents":   {external: "NightlyRateCents"},
		"check_in_day":    {external: "CheckInDay", transform: dayShift},
		"active":          {external: "Active", transform: yesNo},
	},
	"booking": {
		"listing_id":       {external: "ListingID"},
		"guest_account_id": {external: "GuestAccountID"},
		"start_date":       {external: "StartDate", transform: usDate},
		"end_date":         {external: "EndDate", transform: usDate},
		"amount_cents":     {external: "AmountCents"},
		"status":           {external: "Status"},
	},
}

// MapEntityName 内部实体名翻译为遗留平台表名
func MapEntityName(internal string) (string, error) {
	t, ok := entityTables[internal]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEntity, internal)
	}
	return t, nil
}

// MapFields 按静态字典改写字段名并应用值变换。
// 纯函数：同一输入多次调用产出相同结果（重试依赖这一点）。
// nil 值直接省略；未知字段直接报错，属于不可重试的错误。
func MapFields(entity string, fields map[string]interface{}) (map[string]interface{}, error) {
	rules, ok := entityFields[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		rule, ok := rules[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, entity, k)
		}
		if v == nil {
			continue
		}
		if rule.transform != nil {
			tv, err := rule.transform(v)
			if err != nil {
				return nil, fmt.Errorf("%w: transform %s.%s: %v", ErrInvalidPayload, entity, k, err)
			}
			v = tv
		}
		out[rule.external] = v
	}
	return out, nil
}

// dayShift 内部 0 起的星期编码转外部 1 起
func dayShift(v interface{}) (interface{}, error) {
	d, err := toInt(v)
	if err != nil {
		return nil, err
	}
	if d < 0 || d > 6 {
		return nil, fmt.Errorf("day index out of range: %d", d)
	}
	return d + 1, nil
}

// yesNo 布尔转遗留平台的 "Y"/"N"
func yesNo(v interface{}) (interface{}, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("expected bool, got %T", v)
	}
	if b {
		return "Y", nil
	}
	return "N", nil
}

// usDate 日期统一为遗留平台要求的 MM/DD/YYYY
func usDate(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case time.Time:
		return t.Format("01/02/2006"), nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", t, err)
		}
		return parsed.Format("01/02/2006"), nil
	default:
		return nil, fmt.Errorf("expected date, got %T", v)
	}
}

// toInt 兼容 JSON 反序列化后的数值形态
func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
