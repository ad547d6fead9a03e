// Package deps checks that the external binaries vidbatch shells out to are
// installed and usable.
package deps
