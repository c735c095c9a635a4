package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPoints(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want [][]float64
	}{
		{"plain", "1,2\n3,4\n", [][]float64{{1, 2}, {3, 4}}},
		{"header", "x,y\n1,2\n", [][]float64{{1, 2}}},
		{"spaces and comments", "# points\n 1, 2.5\n-3,4e1\n", [][]float64{{1, 2.5}, {-3, 40}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPoints(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadPointsErrors(t *testing.T) {
	tests := map[string]string{
		"empty":       "",
		"header only": "x,y\n",
		"bad value":   "1,2\n3,oops\n",
		"ragged":      "1,2\n3\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := readPoints(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}
