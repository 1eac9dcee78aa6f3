// Package authz decides whether a caller may reach a gateway path.
//
// A Policy holds path rules with one of three access levels: public,
// authenticated or requires-any-role. Rules are ordered most specific
// first and evaluated against the original client path.
package authz
