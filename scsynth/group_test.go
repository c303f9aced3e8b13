package scsynth

import (
	"reflect"
	"testing"
)

var treeTestCases = []struct {
	name    string
	args    []interface{}
	want    *TreeNode
	wantErr bool
}{
	{
		name: "empty_group",
		args: args(int32(0), int32(1), int32(0)),
		want: &TreeNode{ID: 1, IsGroup: true, Children: []*TreeNode{}},
	},
	{
		name: "synth_without_controls",
		args: args(int32(0), int32(0), int32(1), int32(1000), int32(-1), "sine"),
		want: &TreeNode{ID: 0, IsGroup: true, Children: []*TreeNode{
			{ID: 1000, DefName: "sine"},
		}},
	},
	{
		name: "nested_with_controls",
		args: args(
			int32(1),
			int32(0), int32(2),
			int32(1), int32(1),
			int32(1000), int32(-1), "sine", int32(2),
			"freq", float32(440), int32(1), float32(0.5),
			int32(1001), int32(-1), "saw", int32(0),
		),
		want: &TreeNode{ID: 0, IsGroup: true, Children: []*TreeNode{
			{ID: 1, IsGroup: true, Children: []*TreeNode{
				{ID: 1000, DefName: "sine", Controls: map[string]interface{}{
					"freq": float32(440),
					"1":    float32(0.5),
				}},
			}},
			{ID: 1001, DefName: "saw", Controls: map[string]interface{}{}},
		}},
	},
	{
		name:    "truncated",
		args:    args(int32(0), int32(0), int32(2), int32(1000), int32(-1), "sine"),
		wantErr: true,
	},
	{
		name:    "trailing_arguments",
		args:    args(int32(0), int32(1), int32(0), int32(99)),
		wantErr: true,
	},
	{
		name:    "wrong_type",
		args:    args("nope", int32(1), int32(0)),
		wantErr: true,
	},
}

func TestParseTree(t *testing.T) {
	for _, tc := range treeTestCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseTree(tc.args)
			if tc.wantErr {
				if err == nil {
					t.Fatal("want error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("tree = %+v, want %+v", got, tc.want)
			}
		})
	}
}
