package chain

import (
	"encoding/json"
	"fmt"
)

// DecodeParam converts args[i] into out the way a JSON-RPC server would
// receive it. In-process providers use it to read request parameters.
func DecodeParam(args []interface{}, i int, out interface{}) error {
	if i >= len(args) {
		return fmt.Errorf("missing parameter %d", i)
	}
	data, err := json.Marshal(args[i])
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// AssignResult copies v into result through JSON, matching what a remote
// client would decode. A nil result discards v.
func AssignResult(result interface{}, v interface{}) error {
	if result == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, result)
}
