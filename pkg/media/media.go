// Package media lists and fetches candidate videos from a storage backend.
// Selection is deterministic: the oldest unpublished video wins.
package media

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Object describes one stored media file
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Page is one page of a listing
type Page struct {
	Objects   []Object
	NextToken string
}

// Source is a paginated media backend. List returns pages until NextToken
// comes back empty.
type Source interface {
	List(ctx context.Context, prefix, token string) (*Page, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

// defaultExtensions are the file extensions treated as publishable video
// when the caller does not supply its own list
var defaultExtensions = []string{".mp4", ".mov", ".m4v", ".webm"}

func extensionSet(extensions []string) map[string]bool {
	if len(extensions) == 0 {
		extensions = defaultExtensions
	}
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = true
	}
	return set
}

// ListAll drains every page of the listing
func ListAll(ctx context.Context, source Source, prefix string) ([]Object, error) {
	var all []Object
	token := ""
	for {
		page, err := source.List(ctx, prefix, token)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Objects...)
		if page.NextToken == "" {
			return all, nil
		}
		token = page.NextToken
	}
}

// FilterVideos keeps only objects whose extension is in the given list. An
// empty list means the default video extensions.
func FilterVideos(objects []Object, extensions []string) []Object {
	set := extensionSet(extensions)
	var videos []Object
	for _, obj := range objects {
		ext := strings.ToLower(filepath.Ext(obj.Key))
		if set[ext] {
			videos = append(videos, obj)
		}
	}
	return videos
}

// SortByLastModified orders objects oldest first. The sort is stable so
// objects with equal timestamps keep their listing order.
func SortByLastModified(objects []Object) {
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].LastModified.Before(objects[j].LastModified)
	})
}

// coverExtensions are the image extensions recognized as a cover frame for
// a video sharing the same base name
var coverExtensions = []string{".jpg", ".jpeg", ".png"}

// CoverFor finds an image object with the same base name as the video, to
// serve as its cover frame. The second return is false when none exists.
func CoverFor(objects []Object, video Object) (Object, bool) {
	base := strings.TrimSuffix(video.Key, filepath.Ext(video.Key))
	for _, ext := range coverExtensions {
		for _, obj := range objects {
			if strings.EqualFold(obj.Key, base+ext) {
				return obj, true
			}
		}
	}
	return Object{}, false
}

// NextCandidate returns the oldest video not yet recorded as uploaded. The
// second return is false when every video is already published.
func NextCandidate(objects []Object, extensions []string, isUploaded func(key string) bool) (Object, bool) {
	videos := FilterVideos(objects, extensions)
	SortByLastModified(videos)
	for _, obj := range videos {
		if !isUploaded(obj.Key) {
			return obj, true
		}
	}
	return Object{}, false
}
