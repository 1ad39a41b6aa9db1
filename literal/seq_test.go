package literal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLiteralString(t *testing.T) {
	tests := []struct {
		lit  Literal
		want string
	}{
		{NewLiteral([]byte("hello"), true), `"hello"`},
		{NewLiteral([]byte("test"), false), `"test"+`},
		{NewLiteral([]byte("\xff\n"), true), `"\xff\n"`},
	}
	for _, tt := range tests {
		if got := tt.lit.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestSeqMinimize(t *testing.T) {
	tests := []struct {
		name         string
		in           []Literal
		want         []string
		wantComplete []bool
	}{
		{
			name:         "prefix covers longer",
			in:           []Literal{NewLiteral([]byte("foobar"), true), NewLiteral([]byte("foo"), true)},
			want:         []string{"foo"},
			wantComplete: []bool{false},
		},
		{
			name:         "duplicates collapse",
			in:           []Literal{NewLiteral([]byte("ab"), true), NewLiteral([]byte("ab"), true)},
			want:         []string{"ab"},
			wantComplete: []bool{true},
		},
		{
			name:         "independent literals keep order",
			in:           []Literal{NewLiteral([]byte("world"), true), NewLiteral([]byte("hello"), true)},
			want:         []string{"world", "hello"},
			wantComplete: []bool{true, true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := NewSeq(tt.in...)
			seq.Minimize()
			if diff := cmp.Diff(tt.want, seqStrings(seq)); diff != "" {
				t.Fatalf("Minimize() mismatch (-want +got):\n%s", diff)
			}
			var complete []bool
			for _, lit := range seq.Literals() {
				complete = append(complete, lit.Complete)
			}
			if diff := cmp.Diff(tt.wantComplete, complete); diff != "" {
				t.Errorf("Complete mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSeqMinLen(t *testing.T) {
	seq := NewSeq(
		NewLiteral([]byte("hello"), true),
		NewLiteral([]byte("help"), true),
		NewLiteral([]byte("hero"), true),
	)
	if got := seq.MinLen(); got != 4 {
		t.Errorf("MinLen() = %d, want 4", got)
	}
	if NewSeq().MinLen() != 0 {
		t.Error("empty Seq MinLen must be 0")
	}

	var nilSeq *Seq
	if !nilSeq.IsEmpty() || nilSeq.Len() != 0 || nilSeq.Literals() != nil {
		t.Error("nil Seq must be empty")
	}
	nilSeq.Minimize()
}
