// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

// ShouldAdvance reports whether candidate becomes the latest volume of its
// series in place of current.
//
// The pointer moves when no pointer is set, when the candidate is the final
// volume of the series, or when the candidate is strictly newer. A current
// volume without a release date is older than any dated candidate.
func ShouldAdvance(current, candidate *Volume, isFinal bool) bool {
	if candidate == nil {
		return false
	}
	if current == nil || isFinal {
		return true
	}
	if candidate.ReleaseDate == nil {
		return false
	}
	if current.ReleaseDate == nil {
		return true
	}
	return candidate.ReleaseDate.After(*current.ReleaseDate)
}

// VolumeUpdate carries the descriptive fields a source knows about a volume.
// Nil fields are unknown and leave the stored value untouched.
type VolumeUpdate struct {
	SeriesID     *int64
	PublisherID  *int64
	Region       Region
	VolumeNumber *int
	Variant      *string
	ReleaseDate  *Date
}

// ApplyTo merges the known fields into v and reports whether anything changed.
//
// A release date already on the volume is only replaced by a later one.
func (u VolumeUpdate) ApplyTo(v *Volume) bool {
	changed := false

	if u.SeriesID != nil && !equalPtr(v.SeriesID, u.SeriesID) {
		v.SeriesID = copyPtr(u.SeriesID)
		changed = true
	}
	if u.PublisherID != nil && !equalPtr(v.PublisherID, u.PublisherID) {
		v.PublisherID = copyPtr(u.PublisherID)
		changed = true
	}
	if u.Region != "" && v.Region != u.Region {
		v.Region = u.Region
		changed = true
	}
	if u.VolumeNumber != nil && !equalPtr(v.VolumeNumber, u.VolumeNumber) {
		v.VolumeNumber = copyPtr(u.VolumeNumber)
		changed = true
	}
	if u.Variant != nil && v.Variant != *u.Variant {
		v.Variant = *u.Variant
		changed = true
	}
	if u.ReleaseDate != nil && (v.ReleaseDate == nil || u.ReleaseDate.After(*v.ReleaseDate)) {
		v.ReleaseDate = copyPtr(u.ReleaseDate)
		changed = true
	}

	return changed
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	value := *p
	return &value
}
