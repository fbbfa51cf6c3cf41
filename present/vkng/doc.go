// Package vkng implements the native driver interfaces of package present
// on top of vkngwrapper. Instance covers device enumeration and surface
// support; Device covers swapchains, frames and buffer memory, and builds
// the single graphics pipeline the presenter draws with.
//
// None of the types here are safe for concurrent use. Like the rest of the
// presenter they are meant to be driven from the thread that owns the
// window.
package vkng
