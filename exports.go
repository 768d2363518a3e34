package kurir

import (
	"fmt"
	"maps"
	"reflect"
)

// ExportNames is the fixed set of entry points the package guarantees, under
// the names used by clients ported from other HTTP libraries.
var ExportNames = []string{
	"default",
	"Axios",
	"AxiosError",
	"CanceledError",
	"isCancel",
	"CancelToken",
	"VERSION",
	"all",
	"Cancel",
	"isAxiosError",
	"spread",
	"toFormData",
	"AxiosHeaders",
	"HttpStatusCode",
	"formToJSON",
	"getAdapter",
	"mergeConfig",
}

var exports map[string]any

func init() {
	exports = map[string]any{
		"default":        Default,
		"Axios":          reflect.TypeOf((*Client)(nil)).Elem(),
		"AxiosError":     reflect.TypeOf((*Error)(nil)).Elem(),
		"CanceledError":  reflect.TypeOf((*CanceledError)(nil)).Elem(),
		"isCancel":       IsCancel,
		"CancelToken":    reflect.TypeOf((*CancelToken)(nil)).Elem(),
		"VERSION":        Version,
		"all":            All[any],
		"Cancel":         reflect.TypeOf((*Cancel)(nil)).Elem(),
		"isAxiosError":   IsError,
		"spread":         Spread[any, any],
		"toFormData":     ToFormData,
		"AxiosHeaders":   reflect.TypeOf((*Headers)(nil)).Elem(),
		"HttpStatusCode": reflect.TypeOf((*HTTPStatusCode)(nil)).Elem(),
		"formToJSON":     FormToJSON,
		"getAdapter":     GetAdapter,
		"mergeConfig":    MergeConfig,
	}

	if len(exports) != len(ExportNames) {
		panic(fmt.Sprintf("kurir: export table has %d entries, want %d", len(exports), len(ExportNames)))
	}
	for _, name := range ExportNames {
		v, ok := exports[name]
		if !ok || v == nil || (reflect.ValueOf(v).Kind() == reflect.Pointer && reflect.ValueOf(v).IsNil()) {
			panic("kurir: missing export " + name)
		}
	}
}

// Exports returns the export name to value table. Types are reported as
// reflect.Type, functions and values as themselves.
func Exports() map[string]any {
	return maps.Clone(exports)
}
