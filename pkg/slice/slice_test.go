// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slice_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/tankobon/pkg/slice"
)

/*
TestMap transforms every element and keeps nil as nil.
*/
func TestMap(t *testing.T) {
	assert.Equal(t, []string{"1", "16"}, slice.Map([]int{1, 16}, strconv.Itoa))
	assert.Nil(t, slice.Map[int, string](nil, strconv.Itoa))
}

/*
TestTrimmedNonEmpty cleans the stored genre and author lists.
*/
func TestTrimmedNonEmpty(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "genres", input: []string{" 青年", "", "美術 "}, want: []string{"青年", "美術"}},
		{name: "all_blank", input: []string{" ", ""}, want: []string{}},
		{name: "nil", input: nil, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slice.TrimmedNonEmpty(tt.input))
		})
	}
}
