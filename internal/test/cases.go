package test

import "sort"

// Aspect represents an aspect of a test case that can have multiple values.
type Aspect []AspectValue

// AspectValue represents a single value for an aspect of a test case.
type AspectValue struct {
	key      string     // The key used to identify the value in the test case.
	name     string     // The name of the value, used for generating test case names.
	value    any        // The actual value of the aspect.
	valueGen func() any // If provided, a function to generate the value dynamically.
}

// Case is a generated test case, values are indexed by the key of their aspect.
type Case map[string]any

// String returns the value of key as a string, or "" if it's not a string.
func (c Case) String(key string) string {
	s, _ := c[key].(string)

	return s
}

// Bool returns the value of key as a bool, or false if it's not a bool.
func (c Case) Bool(key string) bool {
	b, _ := c[key].(bool)

	return b
}

// genTestCases generates all combinations of test cases based on the provided aspects and values.
func genTestCases(name string, values []AspectValue, cases map[string]Case, aspects ...Aspect) {
	if len(aspects) == 0 {
		c := make(Case, len(values))

		for _, v := range values {
			if v.valueGen != nil {
				c[v.key] = v.valueGen()
			} else {
				c[v.key] = v.value
			}
		}

		cases[name] = c

		return
	}

	for _, v := range aspects[0] {
		finalName := name
		if finalName != "" {
			finalName += "_"
		}

		finalName += v.name

		// values is shared between branches, clone it so siblings don't overwrite each other.
		next := append(values[:len(values):len(values)], v)

		genTestCases(finalName, next, cases, aspects[1:]...)
	}
}

// NewAspect creates a new aspect with the given key and values, for creating values you can use [NewValue] or
// [CreateValue]. aspect value is indexed by the provided key in the test case.
func NewAspect(key string, values ...AspectValue) Aspect {
	for i := range values {
		values[i].key = key
	}

	return values
}

// NewValue creates a new aspect value with the given name and value. The value is used directly in the test case.
// If you need to generate the value dynamically use [CreateValue] instead.
func NewValue(name string, value any) AspectValue {
	return AspectValue{
		name:  name,
		value: value,
	}
}

// CreateValue creates a new aspect value with the given name and a generator function. The generator function is
// called each time a test case is generated, use it for values that must not be shared between test cases.
func CreateValue(name string, generator func() any) AspectValue {
	return AspectValue{
		name:     name,
		valueGen: generator,
	}
}

// GenTestCases generates all combinations of test cases based on the provided aspects, and returns them indexed by
// name, the name of a case is the names of its values joined by "_".
func GenTestCases(aspects ...Aspect) map[string]Case {
	comb := 1
	for _, a := range aspects {
		comb *= len(a)
	}

	testCases := make(map[string]Case, comb)

	genTestCases("", make([]AspectValue, 0, len(aspects)), testCases, aspects...)

	return testCases
}

// Names returns the names of cases sorted, for deterministic iteration.
func Names(cases map[string]Case) []string {
	names := make([]string, 0, len(cases))
	for name := range cases {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
