package batch

import (
	"errors"
	"testing"
)

func TestSplitChunkSizes(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		size  int
		want  [][]string
	}{
		{
			name:  "exact multiple",
			input: []string{"a", "b", "c", "d"},
			size:  2,
			want:  [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "short last chunk",
			input: []string{"a", "b", "c"},
			size:  2,
			want:  [][]string{{"a", "b"}, {"c"}},
		},
		{
			name:  "size one",
			input: []string{"a", "b"},
			size:  1,
			want:  [][]string{{"a"}, {"b"}},
		},
		{
			name:  "size larger than input",
			input: []string{"a", "b"},
			size:  50,
			want:  [][]string{{"a", "b"}},
		},
		{
			name:  "empty input",
			input: nil,
			size:  3,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.input, tt.size)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Split() returned %d chunks, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if len(got[i]) != len(tt.want[i]) {
					t.Fatalf("chunk %d has %d elements, want %d", i, len(got[i]), len(tt.want[i]))
				}
				for j := range got[i] {
					if got[i][j] != tt.want[i][j] {
						t.Errorf("chunk %d element %d = %q, want %q", i, j, got[i][j], tt.want[i][j])
					}
				}
			}
		})
	}
}

func TestSplitInvalidChunkSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := Split([]string{"a"}, size); !errors.Is(err, ErrInvalidChunkSize) {
			t.Errorf("Split(size=%d) error = %v, want ErrInvalidChunkSize", size, err)
		}
	}
}

// TestSplitConcatenation verifies that joining the chunks reproduces
// the input exactly and that only the last chunk may be short.
func TestSplitConcatenation(t *testing.T) {
	input := make([]int, 237)
	for i := range input {
		input[i] = i
	}

	for size := 1; size <= 60; size += 7 {
		chunks, err := Split(input, size)
		if err != nil {
			t.Fatalf("Split(size=%d) error = %v", size, err)
		}

		var joined []int
		for i, chunk := range chunks {
			if i < len(chunks)-1 && len(chunk) != size {
				t.Errorf("size=%d: chunk %d has length %d, want %d", size, i, len(chunk), size)
			}
			joined = append(joined, chunk...)
		}

		if len(joined) != len(input) {
			t.Fatalf("size=%d: joined length = %d, want %d", size, len(joined), len(input))
		}
		for i := range joined {
			if joined[i] != input[i] {
				t.Fatalf("size=%d: joined[%d] = %d, want %d", size, i, joined[i], input[i])
			}
		}
	}
}

// TestSplitRestartable verifies each call yields fresh chunk headers.
func TestSplitRestartable(t *testing.T) {
	input := []string{"a", "b", "c"}

	first, _ := Split(input, 2)
	second, _ := Split(input, 2)
	if &first[0] == &second[0] {
		t.Error("Split() reused chunk slice headers between calls")
	}
}
