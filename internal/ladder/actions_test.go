package ladder

import (
	"encoding/json"
	"testing"

	"github.com/plc-ladder/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Action
	}{
		{
			name:  "add component rounds position",
			input: `{"type":"ADD_COMPONENT","rungIndex":1,"component":{"type":"COIL","position":4.6}}`,
			want:  &AddComponent{RungIndex: 1, Component: models.Component{Type: "COIL", Position: 5}},
		},
		{
			name:  "move component",
			input: `{"type":"MOVE_COMPONENT","fromRung":0,"toRung":2,"fromIndex":1,"toPosition":3.2}`,
			want:  &MoveComponent{FromRung: 0, ToRung: 2, FromIndex: 1, ToColumn: 3.2},
		},
		{
			name:  "add rung without payload",
			input: `{"type":"ADD_RUNG"}`,
			want:  &AddRung{},
		},
		{
			name:  "place segment",
			input: `{"type":"PLACE_SEGMENT","rungIndex":0,"position":3,"row":1,"segmentType":"L-up"}`,
			want:  &PlaceSegment{Column: 3, Row: 1, Shape: models.ShapeCornerUp},
		},
		{
			name:  "delete link",
			input: `{"type":"DELETE_VERTICAL_LINK","linkId":"abc"}`,
			want:  &DeleteVerticalLink{LinkID: "abc"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeAction_Errors(t *testing.T) {
	_, err := DecodeAction([]byte(`{"rungIndex":1}`))
	assert.Error(t, err)

	_, err = DecodeAction([]byte(`{"type":"EXPLODE"}`))
	assert.ErrorContains(t, err, "unknown action type")

	_, err = DecodeAction([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeAction([]byte(`{"type":"DELETE_RUNG","rungIndex":"x"}`))
	assert.Error(t, err)
}

func TestEncodeAction(t *testing.T) {
	data, err := EncodeAction(DeleteRung{RungIndex: 2})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "DELETE_RUNG", fields["type"])
	assert.Equal(t, float64(2), fields["rungIndex"])

	back, err := DecodeAction(data)
	require.NoError(t, err)
	assert.Equal(t, &DeleteRung{RungIndex: 2}, back)
}

func TestDecodedActionsReduce(t *testing.T) {
	a, err := DecodeAction([]byte(`{"type":"ADD_COMPONENT","rungIndex":0,"component":{"type":"COIL","position":5}}`))
	require.NoError(t, err)

	p := Reduce(NewProject("Test"), a)
	require.Len(t, p.Rungs[0].Components, 1)
	assert.Equal(t, 5, p.Rungs[0].Components[0].Position)
}
