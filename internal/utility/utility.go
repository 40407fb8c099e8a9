package utility

import (
	"encoding/json"
)

// ConvertStruct chuyển đổi một struct sang struct khác qua JSON,
// khớp field theo json tag. Dùng khi transform DTO sang model.
func ConvertStruct(source interface{}, target interface{}) (interface{}, error) {
	jsonData, err := json.Marshal(source)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(jsonData, target); err != nil {
		return nil, err
	}

	return target, nil
}
