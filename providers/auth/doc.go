// Package auth provides ai.TokenProvider implementations: a fixed token for scripts and
// tests, and Google Application Default Credentials through golang.org/x/oauth2.
package auth
