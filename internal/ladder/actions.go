package ladder

import (
	"encoding/json"
	"fmt"

	"github.com/plc-ladder/backend/internal/models"
)

// ActionType is the wire name of an action.
type ActionType string

const (
	TypeAddComponent       ActionType = "ADD_COMPONENT"
	TypeMoveComponent      ActionType = "MOVE_COMPONENT"
	TypeDeleteComponent    ActionType = "DELETE_COMPONENT"
	TypeUpdateComponent    ActionType = "UPDATE_COMPONENT"
	TypeAddRung            ActionType = "ADD_RUNG"
	TypeDeleteRung         ActionType = "DELETE_RUNG"
	TypeUpdateSettings     ActionType = "UPDATE_SETTINGS"
	TypeLoadProject        ActionType = "LOAD_PROJECT"
	TypePlaceSegment       ActionType = "PLACE_SEGMENT"
	TypeFlipSegment        ActionType = "FLIP_SEGMENT"
	TypeAddVerticalLink    ActionType = "ADD_VERTICAL_LINK"
	TypeDeleteVerticalLink ActionType = "DELETE_VERTICAL_LINK"
	TypeAddPOU             ActionType = "ADD_POU"
	TypeDeletePOU          ActionType = "DELETE_POU"
)

// Action is a structural edit understood by Reduce.
type Action interface {
	Type() ActionType
	apply(p *models.Project) (*models.Project, error)
}

// AddComponent places a component on a rung. Component.Position is the
// target column.
type AddComponent struct {
	RungIndex int              `json:"rungIndex"`
	Component models.Component `json:"component"`
}

// MoveComponent moves a component within or between rungs. ToColumn may be
// fractional and is rounded to the nearest column.
type MoveComponent struct {
	FromRung  int     `json:"fromRung"`
	ToRung    int     `json:"toRung"`
	FromIndex int     `json:"fromIndex"`
	ToColumn  float64 `json:"toPosition"`
}

// DeleteComponent removes a component by index.
type DeleteComponent struct {
	RungIndex      int `json:"rungIndex"`
	ComponentIndex int `json:"componentIndex"`
}

// UpdateComponent replaces a component's variable map.
type UpdateComponent struct {
	RungIndex      int            `json:"rungIndex"`
	ComponentIndex int            `json:"componentIndex"`
	Variables      map[string]any `json:"variables"`
}

// AddRung appends a rung. A nil Rung appends a blank one.
type AddRung struct {
	Rung *models.Rung `json:"rung,omitempty"`
}

// DeleteRung removes a rung by index.
type DeleteRung struct {
	RungIndex int `json:"rungIndex"`
}

// UpdateSettings replaces the settings record.
type UpdateSettings struct {
	Settings models.Settings `json:"settings"`
}

// LoadProject replaces the whole project, merging settings.
type LoadProject struct {
	Project *models.Project `json:"project"`
}

// PlaceSegment draws, reshapes or (with ShapeNone) erases a wiring segment.
type PlaceSegment struct {
	RungIndex int                 `json:"rungIndex"`
	Column    int                 `json:"position"`
	Row       int                 `json:"row"`
	Shape     models.SegmentShape `json:"segmentType"`
}

// FlipSegment toggles the orientation flag of a corner or tee.
type FlipSegment struct {
	RungIndex int    `json:"rungIndex"`
	SegmentID string `json:"segmentId"`
}

// AddVerticalLink commits a link between two rungs.
type AddVerticalLink struct {
	Link models.VerticalLink `json:"link"`
}

// DeleteVerticalLink removes a link by id.
type DeleteVerticalLink struct {
	LinkID string `json:"linkId"`
}

// AddPOU declares a new program organization unit.
type AddPOU struct {
	POU models.POU `json:"pou"`
}

// DeletePOU removes a POU by id.
type DeletePOU struct {
	POUID string `json:"pouId"`
}

func (AddComponent) Type() ActionType       { return TypeAddComponent }
func (MoveComponent) Type() ActionType      { return TypeMoveComponent }
func (DeleteComponent) Type() ActionType    { return TypeDeleteComponent }
func (UpdateComponent) Type() ActionType    { return TypeUpdateComponent }
func (AddRung) Type() ActionType            { return TypeAddRung }
func (DeleteRung) Type() ActionType         { return TypeDeleteRung }
func (UpdateSettings) Type() ActionType     { return TypeUpdateSettings }
func (LoadProject) Type() ActionType        { return TypeLoadProject }
func (PlaceSegment) Type() ActionType       { return TypePlaceSegment }
func (FlipSegment) Type() ActionType        { return TypeFlipSegment }
func (AddVerticalLink) Type() ActionType    { return TypeAddVerticalLink }
func (DeleteVerticalLink) Type() ActionType { return TypeDeleteVerticalLink }
func (AddPOU) Type() ActionType             { return TypeAddPOU }
func (DeletePOU) Type() ActionType          { return TypeDeletePOU }

func newAction(t ActionType) (Action, bool) {
	switch t {
	case TypeAddComponent:
		return &AddComponent{}, true
	case TypeMoveComponent:
		return &MoveComponent{}, true
	case TypeDeleteComponent:
		return &DeleteComponent{}, true
	case TypeUpdateComponent:
		return &UpdateComponent{}, true
	case TypeAddRung:
		return &AddRung{}, true
	case TypeDeleteRung:
		return &DeleteRung{}, true
	case TypeUpdateSettings:
		return &UpdateSettings{}, true
	case TypeLoadProject:
		return &LoadProject{}, true
	case TypePlaceSegment:
		return &PlaceSegment{}, true
	case TypeFlipSegment:
		return &FlipSegment{}, true
	case TypeAddVerticalLink:
		return &AddVerticalLink{}, true
	case TypeDeleteVerticalLink:
		return &DeleteVerticalLink{}, true
	case TypeAddPOU:
		return &AddPOU{}, true
	case TypeDeletePOU:
		return &DeletePOU{}, true
	}
	return nil, false
}

// DecodeAction parses a JSON envelope of the form {"type": "...", ...fields}.
func DecodeAction(data []byte) (Action, error) {
	var head struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}
	if head.Type == "" {
		return nil, fmt.Errorf("action type is required")
	}
	a, ok := newAction(head.Type)
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", head.Type)
	}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", head.Type, err)
	}
	return a, nil
}

// EncodeAction renders an action as a JSON envelope.
func EncodeAction(a Action) ([]byte, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", a.Type(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", a.Type(), err)
	}
	typ, _ := json.Marshal(a.Type())
	fields["type"] = typ
	return json.Marshal(fields)
}
