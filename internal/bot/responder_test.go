package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Respond(t *testing.T) {
	r := NewBestMatchResponder(DefaultCorpus())

	t.Run("best match", func(t *testing.T) {
		assert.Equal(t, "Hi there!", r.Respond("hello"))
	})

	t.Run("approximate match", func(t *testing.T) {
		assert.Equal(t, "My name is Chat Bot.", r.Respond("tell me, what is your name?"))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Equal(t, DefaultReply, r.Respond("qwzx vbnm"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, DefaultReply, r.Respond(""))
	})
}

func Test_Respond_math(t *testing.T) {
	r := NewBestMatchResponder(nil)

	tests := []struct {
		input string
		want  string
	}{
		{"what is 4 + 5", "4 + 5 = 9"},
		{"What is 2 * (3 + 1)?", "2 * (3 + 1) = 8"},
		{"what is 7 / 2", "7 / 2 = 3.5"},
		{"what is -3 + 10", "-3 + 10 = 7"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Respond(tt.input))
		})
	}

	t.Run("division by zero falls through", func(t *testing.T) {
		assert.Equal(t, DefaultReply, NewBestMatchResponder(nil).Respond("what is 1 / 0"))
	})
}

func Test_Respond_learns(t *testing.T) {
	r := NewBestMatchResponder(nil)

	assert.Equal(t, DefaultReply, r.Respond("do you like coffee"))
	assert.Equal(t, DefaultReply, r.Respond("yes, with milk"))

	// "yes, with milk" was recorded as the reply to the first statement.
	assert.Equal(t, "yes, with milk", r.Respond("do you like coffee"))
}
