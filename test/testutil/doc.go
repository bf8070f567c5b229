// Package testutil provides testing utilities for the reel project.
package testutil
