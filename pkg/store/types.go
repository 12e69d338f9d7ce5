package store

import "time"

// Category classifies the kind of memory a record holds.
type Category string

// Known record categories. [CategoryOther] is the catch-all for recordings
// that fit none of the named kinds.
const (
	CategoryStory    Category = "story"
	CategoryAdvice   Category = "advice"
	CategoryJoke     Category = "joke"
	CategoryWisdom   Category = "wisdom"
	CategoryBirthday Category = "birthday"
	CategoryMoment   Category = "moment"
	CategorySong     Category = "song"
	CategoryOther    Category = "other"
)

// AllCategories lists every valid [Category] in declaration order.
var AllCategories = []Category{
	CategoryStory,
	CategoryAdvice,
	CategoryJoke,
	CategoryWisdom,
	CategoryBirthday,
	CategoryMoment,
	CategorySong,
	CategoryOther,
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	for _, v := range AllCategories {
		if c == v {
			return true
		}
	}
	return false
}

// LengthBucket is the coarse duration classification of a recording.
type LengthBucket string

// Known length buckets.
const (
	LengthShort  LengthBucket = "short"
	LengthMedium LengthBucket = "medium"
	LengthLong   LengthBucket = "long"
)

// IsValid reports whether l is one of the known length buckets.
func (l LengthBucket) IsValid() bool {
	switch l {
	case LengthShort, LengthMedium, LengthLong:
		return true
	}
	return false
}

// Bucket boundaries for [BucketForDuration].
const (
	shortMax  = 20 * time.Second
	mediumMax = 45 * time.Second
)

// BucketForDuration maps a measured recording duration onto a [LengthBucket]:
// under 20s is short, 20s up to and including 45s is medium, anything longer
// is long.
func BucketForDuration(d time.Duration) LengthBucket {
	switch {
	case d < shortMax:
		return LengthShort
	case d <= mediumMax:
		return LengthMedium
	default:
		return LengthLong
	}
}

// Record is one captured family memory. A Record is immutable once inserted;
// the only permitted mutation is deletion.
type Record struct {
	// ID is the store-assigned unique identifier.
	ID string

	// Person is the canonical roster name of the family member the memory
	// belongs to.
	Person string

	// Category classifies the memory.
	Category Category

	// Length is the coarse duration bucket derived from Duration.
	Length LengthBucket

	// Title is the spoken or defaulted display title.
	Title string

	// Tags are free-form labels attached during the recording wizard.
	// May be empty.
	Tags []string

	// AudioRef locates the captured audio (a file path on this device).
	AudioRef string

	// Duration is the measured length of the recording.
	Duration time.Duration

	// CreatedAt is when the record was inserted.
	CreatedAt time.Time
}

// Filters narrows a store query. Zero-valued fields match everything, so the
// zero Filters selects the whole collection.
type Filters struct {
	// Person restricts results to a single canonical roster name.
	Person string

	// Category restricts results to a single category.
	Category Category

	// Length restricts results to a single length bucket.
	Length LengthBucket
}
