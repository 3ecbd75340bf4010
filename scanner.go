package main

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency   = 16
	defaultDiscoverDepth = 2
)

// objectLister is the slice of the S3 client the scanner needs.
type objectLister interface {
	ListPage(ctx context.Context, bucket, prefix, delimiter, token string) (*ListPage, error)
}

// Scanner builds a size tree for a bucket by listing partitions of its
// key namespace in parallel.
type Scanner struct {
	client        objectLister
	bucket        string
	concurrency   int
	discoverDepth int
}

// NewScanner creates a scanner with the default concurrency and
// discovery depth.
func NewScanner(client objectLister, bucket string) *Scanner {
	return &Scanner{
		client:        client,
		bucket:        bucket,
		concurrency:   defaultConcurrency,
		discoverDepth: defaultDiscoverDepth,
	}
}

// Scan lists every object in the bucket and returns the populated tree.
// progress, if non-nil, is called once per listed page with the page's
// object count; it may be called concurrently from different partitions.
// The first listing error aborts the whole scan and no tree is returned.
func (s *Scanner) Scan(ctx context.Context, progress func(int)) (*Tree, error) {
	prefixes, err := s.discover(ctx, "", s.discoverDepth)
	if err != nil {
		return nil, err
	}
	if len(prefixes) <= 1 {
		// Flat namespace: split by first character so the scan still
		// parallelizes.
		base := ""
		if len(prefixes) == 1 {
			base = prefixes[0]
		}
		prefixes = splitPartition(base)
	}

	tree := NewTree()
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, prefix := range prefixes {
		g.Go(func() error {
			return s.listPartition(ctx, prefix, tree, &mu, progress)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tree, nil
}

// discover recursively expands common prefixes under prefix, down to
// depth levels, into a set of independently listable partitions. A prefix
// with no common prefixes becomes a terminal partition.
func (s *Scanner) discover(ctx context.Context, prefix string, depth int) ([]string, error) {
	if depth <= 0 {
		return []string{prefix}, nil
	}
	page, err := s.client.ListPage(ctx, s.bucket, prefix, "/", "")
	if err != nil {
		return nil, err
	}
	if len(page.CommonPrefixes) == 0 {
		return []string{prefix}, nil
	}
	var prefixes []string
	for _, cp := range page.CommonPrefixes {
		sub, err := s.discover(ctx, cp, depth-1)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, sub...)
	}
	return prefixes, nil
}

// listPartition follows the continuation cursor for one partition,
// inserting each page's objects into the shared tree as they arrive.
func (s *Scanner) listPartition(ctx context.Context, prefix string, tree *Tree, mu *sync.Mutex, progress func(int)) error {
	token := ""
	for {
		page, err := s.client.ListPage(ctx, s.bucket, prefix, "", token)
		if err != nil {
			return err
		}
		mu.Lock()
		for _, obj := range page.Objects {
			if strings.HasSuffix(obj.Key, "/") {
				continue // skip directory markers
			}
			tree.Insert(obj.Key, obj.Size)
		}
		mu.Unlock()
		if progress != nil {
			progress(len(page.Objects))
		}
		if page.NextToken == "" {
			return nil
		}
		token = page.NextToken
	}
}

// splitPartition splits a prefix into 36 single-character partitions.
func splitPartition(prefix string) []string {
	parts := make([]string, 0, 36)
	for _, c := range "0123456789abcdefghijklmnopqrstuvwxyz" {
		parts = append(parts, prefix+string(c))
	}
	return parts
}
