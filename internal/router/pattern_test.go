package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectErr      bool
		expectedString string
		expectedParams []string
	}{
		{name: "root", input: "/", expectedString: "/"},
		{name: "literals", input: "/users/all", expectedString: "/users/all"},
		{name: "param", input: "/users/{id}", expectedString: "/users/{id}", expectedParams: []string{"id"}},
		{name: "catch-all", input: "/files/{*path}", expectedString: "/files/{*path}", expectedParams: []string{"path"}},
		{name: "trailing slash kept", input: "/users/", expectedString: "/users/"},
		{name: "error - no leading slash", input: "users", expectErr: true},
		{name: "error - empty segment", input: "/users//x", expectErr: true},
		{name: "error - partial param", input: "/users/id-{id}", expectErr: true},
		{name: "error - bad param name", input: "/users/{1d}", expectErr: true},
		{name: "error - unclosed brace", input: "/users/{id", expectErr: true},
		{name: "error - duplicate param", input: "/{id}/x/{id}", expectErr: true},
		{name: "error - catch-all not last", input: "/{*rest}/x", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParsePattern(tc.input)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedString, p.String())
			assert.Equal(t, tc.expectedParams, p.Params())
		})
	}
}

func TestPattern_Unifies(t *testing.T) {
	testCases := []struct {
		a, b     string
		expected bool
	}{
		{a: "/a/{id}", b: "/a/{name}", expected: true},
		{a: "/a/{id}", b: "/a/new", expected: true},
		{a: "/a/b", b: "/a/c", expected: false},
		{a: "/a", b: "/a/{id}", expected: false},
		{a: "/", b: "/", expected: true},
		{a: "/a/{*rest}", b: "/a/b/c", expected: true},
		{a: "/a/{*rest}", b: "/a", expected: false},
		{a: "/{x}/b", b: "/a/{y}", expected: true},
		{a: "/{*all}", b: "/", expected: false},
		{a: "/{*all}", b: "/x/{*rest}", expected: true},
		{a: "/a/", b: "/a/{id}", expected: false},
		{a: "/a/", b: "/a/{*rest}", expected: false},
		{a: "/a/", b: "/a/", expected: true},
		{a: "/a/", b: "/a", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.a+" vs "+tc.b, func(t *testing.T) {
			pa, err := ParsePattern(tc.a)
			require.NoError(t, err)
			pb, err := ParsePattern(tc.b)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, pa.Unifies(pb))
			assert.Equal(t, tc.expected, pb.Unifies(pa), "unification must be symmetric")
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/users", Join("", "/users"))
	assert.Equal(t, "/api/users", Join("/api", "/users"))
	assert.Equal(t, "/api/users", Join("/api/", "/users"))
	assert.Equal(t, "/api", Join("/api", "/"))
}
