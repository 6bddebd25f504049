package ids

import "testing"

func TestIdStringersAreDistinguishable(t *testing.T) {
	cases := []struct {
		name string
		got  string
	}{
		{"StackingContextId", StackingContextId(7).String()},
		{"PipelineId", PipelineId(7).String()},
		{"Epoch", Epoch(7).String()},
		{"RenderTargetId", RenderTargetId(7).String()},
		{"DrawListGroupId", DrawListGroupId(7).String()},
		{"DrawListId", DrawListId(7).String()},
		{"TextureId", TextureId(7).String()},
	}
	seen := map[string]string{}
	for _, c := range cases {
		if c.got == "" {
			t.Fatalf("%s.String() returned empty string", c.name)
		}
		if other, ok := seen[c.got]; ok {
			t.Fatalf("%s and %s produced identical strings %q", c.name, other, c.got)
		}
		seen[c.got] = c.name
	}
}

func TestStackingContextIdDistinctFromIndex(t *testing.T) {
	// These are deliberately distinct types (content-authored key vs.
	// internal flattening-assigned index); this only has to compile to
	// prove they're not accidentally aliased to the same underlying type
	// in a way that would let one substitute for the other.
	var id StackingContextId = 3
	var idx StackingContextIndex = 3
	if uint32(id) != uint32(idx) {
		t.Fatalf("expected equal underlying values for this test's inputs")
	}
}
