package chain

import "sync/atomic"

// Link is the intrusive registry node. Embed it by value in an allocator type
// to make that type a Member.
type Link struct {
	next  atomic.Pointer[Link]
	reg   atomic.Pointer[Registry]
	owner Member // set on join, before the link is published
}

func (l *Link) link() *Link { return l }

// Purge is the default for members with nothing to give back.
func (l *Link) Purge() int64 { return 0 }

// Describe is the default for members without a summary.
func (l *Link) Describe() string { return "" }

// NextAllocator returns the member registered after this one, or nil.
func (l *Link) NextAllocator() Member {
	n := l.next.Load()
	if n == nil {
		return nil
	}
	return n.owner
}

// Registered reports whether the member is currently in a registry.
func (l *Link) Registered() bool {
	return l.reg.Load() != nil
}

// Registry returns the registry the member joined, or nil.
func (l *Link) Registry() *Registry {
	return l.reg.Load()
}
