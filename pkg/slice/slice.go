// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package slice complements the standard [slices] package with generic
transformations used when shaping list responses.
*/
package slice

// Map applies transform to every element. A nil input yields nil.
func Map[T any, U any](input []T, transform func(T) U) []U {
	if input == nil {
		return nil
	}

	result := make([]U, len(input))
	for i, v := range input {
		result[i] = transform(v)
	}

	return result
}

// GroupBy buckets elements by key, preserving input order inside each bucket.
func GroupBy[T any, K comparable](input []T, key func(T) K) map[K][]T {
	groups := make(map[K][]T)
	for _, v := range input {
		k := key(v)
		groups[k] = append(groups[k], v)
	}
	return groups
}
