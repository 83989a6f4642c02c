package frame

import "testing"

func TestPacket_NewHasRefCountOne(t *testing.T) {
	p := NewPacket()
	if p.RefCount() != 1 {
		t.Fatalf("RefCount() = %d, want 1", p.RefCount())
	}
}

func TestPacket_RetainRelease(t *testing.T) {
	p := NewPacket()
	p.Retain()
	if got := p.RefCount(); got != 2 {
		t.Fatalf("RefCount() after Retain = %d, want 2", got)
	}
	if got := p.Release(); got != 1 {
		t.Fatalf("Release() = %d, want 1", got)
	}
	if got := p.Release(); got != 0 {
		t.Fatalf("Release() = %d, want 0", got)
	}
}

func TestPacket_ReleaseReturnsToOwner(t *testing.T) {
	var released *Packet
	owner := releaserFunc(func(p *Packet) { released = p })

	p := NewPooledPacket(owner)
	p.Release()

	if released != p {
		t.Fatal("Release() at zero refcount did not notify owner")
	}
}

func TestPacket_SetSizeAndFormat(t *testing.T) {
	p := NewPacket()
	p.SetSize(16, 8, RGBA8)

	if p.Width() != 16 || p.Height() != 8 || p.Format() != RGBA8 {
		t.Fatalf("got %dx%d %v, want 16x8 RGBA8", p.Width(), p.Height(), p.Format())
	}
}

func TestPacket_Reset(t *testing.T) {
	p := NewPacket()
	p.SetSize(16, 8, RGBA8)
	p.SetCPUBuffer([]byte{1, 2, 3}, 3)
	p.Metadata.Set("k", Int64Value(1))
	p.Retain()

	p.Reset()

	if p.Width() != 0 || p.Height() != 0 || p.Format() != Unknown {
		t.Fatal("Reset() did not clear size/format")
	}
	if buf, _ := p.CPUBufferNoWait(); buf != nil {
		t.Fatal("Reset() did not clear CPU buffer")
	}
	if p.Metadata.Has("k") {
		t.Fatal("Reset() did not clear metadata")
	}
	if p.RefCount() != 1 {
		t.Fatalf("RefCount() after Reset = %d, want 1", p.RefCount())
	}
}

func TestPacket_CloneSharesTextureNotBuffer(t *testing.T) {
	p := NewPacket()
	p.SetSize(4, 4, RGBA8)
	p.SetCPUBuffer([]byte{9, 9}, 2)
	p.Metadata.Set("face", FacesValue([]Face{{Confidence: 0.5}}))

	clone := p.Clone()

	if clone.ID() == p.ID() {
		t.Fatal("Clone() should not share identity with source")
	}
	if clone.Width() != 4 || clone.Height() != 4 || clone.Format() != RGBA8 {
		t.Fatal("Clone() did not copy size/format")
	}
	if buf, _ := clone.CPUBufferNoWait(); buf != nil {
		t.Fatal("Clone() should not carry over the CPU buffer")
	}
	if v, ok := clone.Metadata.Get("face"); !ok || v.Kind != KindFaces {
		t.Fatal("Clone() did not copy metadata")
	}
}

func TestPacket_WaitGPUWithNoFence(t *testing.T) {
	p := NewPacket()
	if !p.WaitGPU(0) {
		t.Fatal("WaitGPU() with no fence set should return true immediately")
	}
}

type releaserFunc func(*Packet)

func (f releaserFunc) ReleasePacket(p *Packet) { f(p) }
