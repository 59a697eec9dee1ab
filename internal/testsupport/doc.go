// Package testsupport provides shared helpers for package tests.
package testsupport
