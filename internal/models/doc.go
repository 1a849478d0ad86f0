// Package models defines the identity and account records.
package models
