package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoState_RoundTrip(t *testing.T) {
	for _, s := range States {
		b, err := json.Marshal(s)
		require.NoError(t, err)

		var got TodoState
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, s, got)
	}

	b, err := json.Marshal(StateDone)
	require.NoError(t, err)
	assert.Equal(t, `"done"`, string(b))
}

func TestParseTodoState(t *testing.T) {
	tests := []struct {
		in      string
		want    TodoState
		wantErr bool
	}{
		{in: "todo", want: StateTodo},
		{in: "inprogress", want: StateInProgress},
		{in: " DONE ", want: StateDone},
		{in: "in_progress", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTodoState(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTodoState_UnmarshalRejectsUnknown(t *testing.T) {
	var s TodoState
	assert.Error(t, json.Unmarshal([]byte(`"archived"`), &s))
}

func TestTodoState_MarshalRejectsUnknown(t *testing.T) {
	_, err := json.Marshal(TodoState("archived"))
	assert.Error(t, err)
}
