package toyfat

import (
	"bytes"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/toyfat/dirent"
	"github.com/hupe1980/toyfat/fat"
)

// Report lists the inconsistencies found by Check. Block lists are sorted.
type Report struct {
	// CrossLinked blocks are reachable from more than one chain.
	CrossLinked []int
	// Leaked blocks are allocated but unreachable from the root.
	Leaked []int
	// Dangling blocks point at a free, reserved or out-of-range block.
	Dangling []int
	// Invalid blocks hold a slot value that is not legal.
	Invalid []int
	// Unreserved lists the fixed reserved blocks that are not marked reserved.
	Unreserved []int
	// BadRecords are records with an invalid name, attributes or start block.
	BadRecords []string
	// CountMismatch lists files whose record block count differs from the
	// length of their chain.
	CountMismatch []string
	// MissingSentinel lists files whose last block holds no sentinel.
	MissingSentinel []string
}

// Clean reports whether no problem was found.
func (r *Report) Clean() bool {
	return len(r.CrossLinked) == 0 &&
		len(r.Leaked) == 0 &&
		len(r.Dangling) == 0 &&
		len(r.Invalid) == 0 &&
		len(r.Unreserved) == 0 &&
		len(r.BadRecords) == 0 &&
		len(r.CountMismatch) == 0 &&
		len(r.MissingSentinel) == 0
}

type checker struct {
	fsys      *FileSystem
	reachable *roaring.Bitmap
	crossed   *roaring.Bitmap
	dangling  *roaring.Bitmap
	report    *Report
}

// Check walks the directory tree and the allocation table and reports
// every inconsistency it finds. It only fails on device errors.
func (fsys *FileSystem) Check() (*Report, error) {
	const op = "check"

	fsys.mu.RLock()
	defer fsys.mu.RUnlock()

	c := &checker{
		fsys:      fsys,
		reachable: roaring.New(),
		crossed:   roaring.New(),
		dangling:  roaring.New(),
		report:    &Report{},
	}

	// The table region is in use by definition.
	c.reachable.AddRange(0, tableBlocks)
	c.walk(RootBlock)
	if err := c.dir("/", RootBlock); err != nil {
		return nil, newError(op, "/", ErrIO, err)
	}

	t := fsys.table
	leaked := roaring.New()
	invalid := roaring.New()
	for i := range t.Len() {
		s := t.Get(i)
		if !t.Valid(s) {
			invalid.AddInt(i)
			continue
		}
		if s != fat.Free && s != fat.Reserved && !c.reachable.ContainsInt(i) {
			leaked.AddInt(i)
		}
	}
	for _, r := range reservedBlocks {
		if t.Get(r) != fat.Reserved {
			c.report.Unreserved = append(c.report.Unreserved, r)
		}
	}

	c.report.CrossLinked = toInts(c.crossed)
	c.report.Leaked = toInts(leaked)
	c.report.Dangling = toInts(c.dangling)
	c.report.Invalid = toInts(invalid)

	if !c.report.Clean() {
		fsys.logger.Warn("filesystem check found problems",
			"cross_linked", len(c.report.CrossLinked),
			"leaked", len(c.report.Leaked),
			"dangling", len(c.report.Dangling),
			"bad_records", len(c.report.BadRecords),
		)
	}

	return c.report, nil
}

// walk marks the chain from start reachable and returns its blocks and
// whether it was already (partly) claimed by another chain.
func (c *checker) walk(start int) ([]int, bool) {
	t := c.fsys.table
	var chain []int
	crossed := false
	b := start
	for range t.Len() {
		if c.reachable.ContainsInt(b) {
			c.crossed.AddInt(b)
			crossed = true
			break
		}
		c.reachable.AddInt(b)
		chain = append(chain, b)

		s := t.Get(b)
		if !s.IsNext() {
			break
		}
		next := s.Target()
		if ns := t.Get(next); next >= t.Len() || ns == fat.Free || ns == fat.Reserved {
			c.dangling.AddInt(b)
			break
		}
		b = next
	}
	return chain, crossed
}

func (c *checker) dir(path string, block int) error {
	buf, err := c.fsys.readBlock(block)
	if err != nil {
		return err
	}

	t := c.fsys.table
	for _, s := range dirent.Records(buf) {
		child := joinPath(path, s.Name)
		start := int(s.Start)

		isDir, isFile := s.Attr.Has(Directory), s.Attr.Has(File)
		if dirent.ValidName(s.Name) != nil || isDir == isFile ||
			start <= RootBlock || start >= t.Len() ||
			t.Get(start) == fat.Free || t.Get(start) == fat.Reserved {
			c.report.BadRecords = append(c.report.BadRecords, child)
			continue
		}

		chain, crossed := c.walk(start)
		if crossed {
			continue
		}

		if isDir {
			if err := c.dir(child, start); err != nil {
				return err
			}
			continue
		}

		if len(chain) != int(s.Count) {
			c.report.CountMismatch = append(c.report.CountMismatch, child)
		}
		last, err := c.fsys.readBlock(chain[len(chain)-1])
		if err != nil {
			return err
		}
		if bytes.IndexByte(last, Sentinel) < 0 {
			c.report.MissingSentinel = append(c.report.MissingSentinel, child)
		}
	}
	return nil
}

func toInts(b *roaring.Bitmap) []int {
	out := make([]int, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}
