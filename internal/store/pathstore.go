package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgallion1/syllabus/internal/pathstore"
	"github.com/dgallion1/syllabus/internal/record"
)

// DefaultPrefix is the pathstore key prefix for the curriculum graph.
const DefaultPrefix = "curriculum"

// PathstoreSink publishes records into pathstore. Each course is stored at
// {prefix}/courses/{code}, indexed by name at {prefix}/names/{name}, and
// linked to the name nodes of its prerequisite and subsequent courses.
type PathstoreSink struct {
	client *pathstore.Client
	prefix string
}

func NewPathstoreSink(client *pathstore.Client, prefix string) *PathstoreSink {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &PathstoreSink{client: client, prefix: prefix}
}

func (s *PathstoreSink) Name() string { return "pathstore" }

// CourseKey returns the node key of a course.
func (s *PathstoreSink) CourseKey(code string) string {
	return s.prefix + "/courses/" + code
}

// NameKey returns the index key of a course name.
func (s *PathstoreSink) NameKey(name string) string {
	return s.prefix + "/names/" + name
}

// Put stores the record and its links, returning the course key.
func (s *PathstoreSink) Put(ctx context.Context, rec *record.CourseRecord) (string, error) {
	if rec.Code == "" || rec.Code == record.NotFound {
		return "", fmt.Errorf("record %q has no course code", rec.FileName)
	}
	key := s.CourseKey(rec.Code)
	source := "syllabus:" + rec.FileName

	if err := s.client.PutNode(ctx, key, pathstore.NodeRequest{Value: rec, Source: source}); err != nil {
		return key, err
	}
	if rec.Name != "" && rec.Name != record.NotFound {
		err := s.client.PutNode(ctx, s.NameKey(rec.Name), pathstore.NodeRequest{
			Value:     map[string]any{"course_code": rec.Code, "course_key": key},
			MergeMode: "replace",
			Source:    source,
		})
		if err != nil {
			return key, fmt.Errorf("name index: %w", err)
		}
	}

	for _, name := range rec.Relations.Prerequisites {
		if err := s.link(ctx, key, name, "prerequisite"); err != nil {
			return key, err
		}
	}
	for _, name := range rec.Relations.Subsequent {
		if err := s.link(ctx, key, name, "subsequent"); err != nil {
			return key, err
		}
	}
	return key, nil
}

func (s *PathstoreSink) link(ctx context.Context, from, course, kind string) error {
	err := s.client.PutLink(ctx, pathstore.LinkRequest{
		From:    from,
		To:      s.NameKey(course),
		Weight:  1,
		Summary: kind,
	})
	if err != nil {
		return fmt.Errorf("%s link to %s: %w", kind, course, err)
	}
	return nil
}

// Delete removes a course node.
func (s *PathstoreSink) Delete(ctx context.Context, code string) error {
	return s.client.DeleteNode(ctx, s.CourseKey(code), false)
}

// GraphEntry summarises one course node in pathstore.
type GraphEntry struct {
	Key  string `json:"key"`
	Code string `json:"course_code"`
	Name string `json:"course_name"`
}

// Course loads a published record by course code.
func (s *PathstoreSink) Course(ctx context.Context, code string) (*record.CourseRecord, error) {
	node, err := s.client.GetNode(ctx, s.CourseKey(code))
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, ErrNotFound
	}
	var rec record.CourseRecord
	if err := json.Unmarshal(node.Value, &rec); err != nil {
		return nil, fmt.Errorf("decode course %s: %w", code, err)
	}
	return &rec, nil
}

// Courses lists published course nodes, at most limit when limit > 0.
func (s *PathstoreSink) Courses(ctx context.Context, limit int) ([]GraphEntry, error) {
	nodes, err := s.client.ListChildren(ctx, s.prefix+"/courses", limit)
	if err != nil {
		return nil, err
	}
	out := make([]GraphEntry, 0, len(nodes))
	for _, n := range nodes {
		e := GraphEntry{Key: n.Key, Code: strings.TrimPrefix(n.Key, s.prefix+"/courses/")}
		var rec record.CourseRecord
		if json.Unmarshal(n.Value, &rec) == nil {
			if rec.Code != "" {
				e.Code = rec.Code
			}
			e.Name = rec.Name
		}
		out = append(out, e)
	}
	return out, nil
}
