package models

import "testing"

func TestRoleRank(t *testing.T) {
	if RoleRank(RoleViewer) >= RoleRank(RoleBuyer) {
		t.Fatalf("expected buyer to outrank viewer")
	}
	if RoleRank(RoleBuyer) >= RoleRank(RoleEditor) {
		t.Fatalf("expected editor to outrank buyer")
	}
	if RoleRank(RoleEditor) >= RoleRank(RoleAdmin) {
		t.Fatalf("expected admin to outrank editor")
	}
	if RoleRank("superuser") != 0 {
		t.Fatalf("expected unknown role to rank lowest")
	}
}

func TestMembershipRoleSet(t *testing.T) {
	tests := []struct {
		roles string
		want  []string
	}{
		{roles: "", want: nil},
		{roles: "admin", want: []string{"admin"}},
		{roles: "admin,buyer", want: []string{"admin", "buyer"}},
		{roles: " Editor , VIEWER ", want: []string{"editor", "viewer"}},
		{roles: "buyer,,", want: []string{"buyer"}},
	}

	for _, tt := range tests {
		m := Membership{Roles: tt.roles}
		got := m.RoleSet()
		if len(got) != len(tt.want) {
			t.Fatalf("RoleSet(%q) = %v, want %v", tt.roles, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("RoleSet(%q) = %v, want %v", tt.roles, got, tt.want)
			}
		}
	}
}

func TestMembershipIsBuyerOnly(t *testing.T) {
	tests := []struct {
		roles string
		want  bool
	}{
		{roles: "buyer", want: true},
		{roles: "buyer,viewer", want: false},
		{roles: "admin,buyer", want: false},
		{roles: "admin", want: false},
		{roles: "", want: false},
	}

	for _, tt := range tests {
		m := Membership{Roles: tt.roles}
		if got := m.IsBuyerOnly(); got != tt.want {
			t.Fatalf("IsBuyerOnly(%q) = %v, want %v", tt.roles, got, tt.want)
		}
	}
}

func TestMembershipIsManager(t *testing.T) {
	for _, roles := range []string{"admin", "editor", "editor,buyer"} {
		m := Membership{Roles: roles}
		if !m.IsManager() {
			t.Fatalf("expected roles %q to manage", roles)
		}
	}
	for _, roles := range []string{"", "buyer", "viewer", "buyer,viewer"} {
		m := Membership{Roles: roles}
		if m.IsManager() {
			t.Fatalf("expected roles %q not to manage", roles)
		}
	}
}

func TestMembershipAddRole(t *testing.T) {
	m := Membership{Roles: "viewer"}
	m.AddRole(RoleBuyer)
	if !m.HasRole(RoleBuyer) || !m.HasRole(RoleViewer) {
		t.Fatalf("expected both roles after AddRole, got %q", m.Roles)
	}

	m.AddRole(RoleBuyer)
	if m.Roles != "viewer,buyer" {
		t.Fatalf("expected AddRole to be idempotent, got %q", m.Roles)
	}
}
