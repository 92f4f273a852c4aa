package models

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStep_FlattensExtra(t *testing.T) {
	step := Step{ID: "n2", Type: KindAction, Service: "notion", Action: "create_page", Extra: map[string]any{"parentId": "p-1"}}

	data, err := json.Marshal(step)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"n2","type":"action","service":"notion","action":"create_page","parentId":"p-1"}`, string(data))

	var decoded Step
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, step, decoded)
}

func TestStep_NumericID(t *testing.T) {
	var step Step
	require.NoError(t, json.Unmarshal([]byte(`{"id": 3, "service": "slack"}`), &step))

	assert.Equal(t, "3", step.ID)
	assert.Nil(t, step.Extra)
}

func TestSteps_Shapes(t *testing.T) {
	testCases := []struct {
		name string
		json string
		want int
	}{
		{name: "array", json: `{"workflow":[{"id":"a"},{"id":"b"}]}`, want: 2},
		{name: "string", json: `{"workflow":"[{\"id\":\"a\"}]"}`, want: 1},
		{name: "missing", json: `{}`, want: 0},
		{name: "null", json: `{"workflow":null}`, want: 0},
		{name: "object", json: `{"workflow":{"id":"a"}}`, want: 0},
		{name: "bad string", json: `{"workflow":"not json"}`, want: 0},
		{name: "number", json: `{"workflow":12}`, want: 0},
		{name: "bad elements skipped", json: `{"workflow":[{"id":"a"},42,null,{"id":"b"}]}`, want: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var doc WorkflowDocument
			require.NoError(t, json.Unmarshal([]byte(tc.json), &doc))
			assert.Len(t, doc.Workflow, tc.want)
		})
	}
}

func TestEdge_NumericEndpoints(t *testing.T) {
	var edges Edges
	require.NoError(t, json.Unmarshal([]byte(`[{"source":1,"target":"2","sourceHandle":"out"},{"source":3},5]`), &edges))

	assert.Equal(t, Edges{{Source: "1", Target: "2", SourceHandle: "out"}}, edges)
}

func TestWorkflowDocument_EmptyListsMarshalAsArrays(t *testing.T) {
	data, err := json.Marshal(WorkflowDocument{Name: "n", Owner: "o"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"name":"n","owner":"o","workflow":[],"edges":[]}`, string(data))
}

func TestWorkflowDocument_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	require.NoError(t, validate.Struct(WorkflowDocument{Name: "n", Owner: "o"}))
	require.Error(t, validate.Struct(WorkflowDocument{Name: "n"}))
	require.Error(t, validate.Struct(WorkflowDocument{Owner: "o"}))
}

func TestDocumentID(t *testing.T) {
	var doc WorkflowDocument
	require.NoError(t, json.Unmarshal([]byte(`{"id": 12}`), &doc))
	assert.Equal(t, DocumentID("12"), doc.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "abc"}`), &doc))
	assert.Equal(t, "abc", doc.ID.String())
}

func TestRunResult_Render(t *testing.T) {
	testCases := []struct {
		name string
		json string
		want string
	}{
		{name: "subject and body", json: `{"workflow_id":"e","subject":"Hi","body":"There"}`, want: "Subject: Hi\n\nThere"},
		{name: "message", json: `{"workflow_id":"e","message":"Workflow started"}`, want: "Workflow started"},
		{name: "raw", json: `{"workflow_id":7}`, want: "{\n  \"workflow_id\": 7\n}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var res RunResult
			require.NoError(t, json.Unmarshal([]byte(tc.json), &res))
			assert.Equal(t, tc.want, res.Render())
		})
	}
}

func TestRunResult_NumericWorkflowID(t *testing.T) {
	var res RunResult
	require.NoError(t, json.Unmarshal([]byte(`{"workflow_id": 42}`), &res))

	assert.Equal(t, "42", res.WorkflowID)
}

func TestNode_ApplyAndClone(t *testing.T) {
	node := Node{ID: "n", Kind: KindAction, Service: "notion", Action: DefaultAction}

	node.Apply(Patch{FieldAction: "create_page", FieldParentID: "p", FieldType: "trigger"})

	assert.Equal(t, "create_page", node.Action)
	assert.Equal(t, KindTrigger, node.Kind)

	node.Apply(Patch{FieldType: "banana"})
	assert.Equal(t, KindTrigger, node.Kind)
	assert.Equal(t, "p", node.StringField(FieldParentID))

	clone := node.Clone()
	clone.Extra[FieldParentID] = "other"
	assert.Equal(t, "p", node.StringField(FieldParentID))
}

func TestDefaultKind(t *testing.T) {
	assert.Equal(t, KindTrigger, DefaultKind(ServiceGmail))
	assert.Equal(t, KindAction, DefaultKind(ServiceNotion))
	assert.Equal(t, KindAction, DefaultKind("unknown_service"))
}

func TestLogKey(t *testing.T) {
	assert.Equal(t, "workflow:abc:log", LogKey("abc"))
}
