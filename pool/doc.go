// Package pool
// Author: momentics <momentics@gmail.com>
//
// Buffer pooling for the sink read path: a generic sync.Pool wrapper and a
// fixed-size chunk allocator with in-use accounting.
package pool
