package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolicyNilAllowsEverything(t *testing.T) {
	var p *Policy
	require.True(t, p.Allows(true, "1.2.3.4"))
	require.True(t, p.Allows(false, "1.2.3.4"))
}

func TestPolicyEmptyAllowsEverything(t *testing.T) {
	p := &Policy{}
	require.True(t, p.Allows(false, "1.2.3.4"))
}

func TestPolicyDenyWinsOverAllow(t *testing.T) {
	p := &Policy{
		AllowPublish: []string{"1.2.3.4"},
		DenyPublish:  []string{"1.2.3.4"},
	}
	require.False(t, p.Allows(true, "1.2.3.4"))
}

func TestPolicyAllowListRestrictsToItsEntries(t *testing.T) {
	p := &Policy{AllowPlay: []string{"10.0.0.1"}}
	require.True(t, p.Allows(false, "10.0.0.1"))
	require.False(t, p.Allows(false, "10.0.0.2"))
}

func TestPolicyWildcardAll(t *testing.T) {
	p := &Policy{DenyPublish: []string{"all"}}
	require.False(t, p.Allows(true, "203.0.113.9"))
	require.True(t, p.Allows(false, "203.0.113.9"))
}

func TestPolicyScopesAreIndependent(t *testing.T) {
	p := &Policy{DenyPlay: []string{"1.2.3.4"}}
	require.False(t, p.Allows(false, "1.2.3.4"))
	require.True(t, p.Allows(true, "1.2.3.4"))
}
