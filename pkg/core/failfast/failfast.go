// Package failfast turns programmer errors (broken internal invariants,
// missing collaborators) into immediate panics. Conditions caused by a
// remote party, such as a protocol violation by a subscriber, are reported
// as errors instead and never go through this package.
package failfast

import (
	"fmt"
	"reflect"
)

// If panics if condition is false
// Allows formatted messages with args
func If(condition bool, message string, args ...interface{}) {
	if !condition {
		panic(fmt.Errorf("fail-fast: "+message, args...))
	}
}

// NotNil panics if v is nil, including typed nil pointers, funcs, maps,
// channels and slices hidden behind an interface
func NotNil(v interface{}, name string) {
	if v == nil {
		panic(fmt.Errorf("fail-fast: %s is nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			panic(fmt.Errorf("fail-fast: %s is nil", name))
		}
	}
}

// Positive panics unless n > 0
func Positive(n int64, name string) {
	if n <= 0 {
		panic(fmt.Errorf("fail-fast: %s must be positive, got %d", name, n))
	}
}
