package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/hanpama/minigql/internal/plugin"
	"github.com/hanpama/minigql/internal/resolver"
)

const demoSchema = `
type User {
  id: ID!
  name: String!
  email: String
  posts: [Post!]!
}

type Post {
  id: ID!
  title: String!
  author: User
}

input CreateUserInput {
  name: String!
  email: String
}

input CreatePostInput {
  authorId: ID!
  title: String!
}
`

var errNotFound = errors.New("not found")

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`

	store *Store
}

func (u *User) Posts() []*Post { return u.store.postsBy(u.ID) }

type Post struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	AuthorID string `json:"authorId"`

	store *Store
}

func (p *Post) Author() *User {
	u, _ := p.store.user(p.AuthorID)
	return u
}

// Store keeps users and posts in memory.
type Store struct {
	mu     sync.RWMutex
	seq    int
	users  map[string]*User
	posts  map[string]*Post
	seeded bool
}

func NewStore() *Store {
	return &Store{users: map[string]*User{}, posts: map[string]*Post{}}
}

func (s *Store) nextID() string {
	s.seq++
	return strconv.Itoa(s.seq)
}

func (s *Store) user(id string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *Store) postsBy(authorID string) []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Post{}
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	sortByID(out, func(p *Post) string { return p.ID })
	return out
}

func (s *Store) createUser(name, email string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{ID: s.nextID(), Name: name, Email: email, store: s}
	s.users[u.ID] = u
	return u
}

func (s *Store) createPost(authorID, title string) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[authorID]; !ok {
		return nil, fmt.Errorf("user %s: %w", authorID, errNotFound)
	}
	p := &Post{ID: s.nextID(), Title: title, AuthorID: authorID, store: s}
	s.posts[p.ID] = p
	return p, nil
}

func (s *Store) deleteUser(id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, errNotFound)
	}
	delete(s.users, id)
	for pid, p := range s.posts {
		if p.AuthorID == id {
			delete(s.posts, pid)
		}
	}
	return u, nil
}

// Seed adds the demo data once.
func (s *Store) Seed(ctx context.Context) error {
	s.mu.Lock()
	seeded := s.seeded
	s.seeded = true
	s.mu.Unlock()
	if seeded {
		return nil
	}
	ann := s.createUser("Ann", "ann@example.com")
	bo := s.createUser("Bo", "")
	for _, p := range []struct{ author, title string }{
		{ann.ID, "Hello"},
		{ann.ID, "Schemas from names"},
		{bo.ID, "First post"},
	} {
		if _, err := s.createPost(p.author, p.title); err != nil {
			return err
		}
	}
	return nil
}

func sortByID[T any](items []T, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		a, _ := strconv.Atoi(id(items[i]))
		b, _ := strconv.Atoi(id(items[j]))
		return a < b
	})
}

func inputString(p resolver.Params, key string) string {
	v, _ := p.InputMap()[key].(string)
	return v
}

// Resolvers returns the demo operations. Types and arguments are inferred
// from the names where possible.
func (s *Store) Resolvers() []resolver.Descriptor {
	return []resolver.Descriptor{
		{Name: "userById", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			u, ok := s.user(inputString(p, "id"))
			if !ok {
				return nil, nil
			}
			return u, nil
		}},
		{Name: "users", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			s.mu.RLock()
			out := make([]*User, 0, len(s.users))
			for _, u := range s.users {
				out = append(out, u)
			}
			s.mu.RUnlock()
			sortByID(out, func(u *User) string { return u.ID })
			return out, nil
		}},
		{Name: "posts", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			s.mu.RLock()
			out := make([]*Post, 0, len(s.posts))
			for _, post := range s.posts {
				out = append(out, post)
			}
			s.mu.RUnlock()
			sortByID(out, func(p *Post) string { return p.ID })
			return out, nil
		}},
		{Name: "createUser", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			return s.createUser(inputString(p, "name"), inputString(p, "email")), nil
		}},
		{Name: "createPost", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			return s.createPost(inputString(p, "authorId"), inputString(p, "title"))
		}},
		{Name: "deleteUser", ArgumentType: "IdInput!", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			return s.deleteUser(inputString(p, "id"))
		}},
		{Name: "viewer", ReturnType: "String", Handler: func(ctx context.Context, p resolver.Params) (any, error) {
			return p.Context, nil
		}},
	}
}

// Plugin seeds the store before serving and exposes the X-Viewer header as
// the request context.
func (s *Store) Plugin() plugin.Descriptor {
	return plugin.Descriptor{
		Name:       "store",
		Parameters: map[string]plugin.Value{"store": plugin.Static(s)},
		Context: func(ctx context.Context, r *http.Request) (any, error) {
			if v := r.Header.Get("X-Viewer"); v != "" {
				return v, nil
			}
			return "anonymous", nil
		},
		PreStart: s.Seed,
	}
}
