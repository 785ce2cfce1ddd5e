package main

import (
	"sort"

	"github.com/auditmos/actionkit/action"
	"github.com/auditmos/actionkit/endpoint"
	"github.com/auditmos/actionkit/event"
	"github.com/auditmos/actionkit/format"
	"github.com/oklog/ulid/v2"
)

// The directory is the sample endpoint tree the CLI dispatches against. It
// lives for a single process.

type user struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type directory struct {
	users  map[int]*user
	nextID int
}

func newDirectory() *directory {
	d := &directory{users: make(map[int]*user), nextID: 1}
	d.add("ann", "ann@example.com", "admin")
	d.add("bo", "bo@example.com", "member")
	return d
}

func (d *directory) add(name, email, role string) *user {
	u := &user{ID: d.nextID, Name: name, Email: email, Role: role}
	d.users[u.ID] = u
	d.nextID++
	return u
}

func (d *directory) byName(name string) *user {
	for _, u := range d.users {
		if u.Name == name {
			return u
		}
	}
	return nil
}

var (
	userID   = format.New(format.Required(), format.Integer(), format.Min(1))
	userName = format.New(format.Required(), format.Stringify(), format.Normalize(), format.Trim(), format.Lower(),
		format.MinLength(3), format.MaxLength(16), format.Match(`^[a-z0-9_]+$`))
	email = format.New(format.Required(), format.Stringify(), format.Trim(), format.Fold(),
		format.Match(`^[^@\s]+@[^@\s]+\.[a-z]+$`)).Message("must be a valid email address")
	role = format.New(format.Default("member"), format.Stringify(), format.Trim(), format.Lower(), format.OneOf("member", "admin"))

	idParams     = format.Record(format.Field{Name: "id", Format: userID})
	listParams   = format.Optional(format.Record(format.Field{Name: "role", Format: format.Optional(role)}))
	renameParams = format.Record(format.Field{Name: "name", Format: userName})
	createParams = format.Record(
		format.Field{Name: "name", Format: userName},
		format.Field{Name: "email", Format: email},
		format.Field{Name: "role", Format: role},
	)
)

// withParams attaches a param format to an action.
type withParams struct {
	action.Action
	params action.Action
}

func (w withParams) ParamFormat() action.Action {
	return w.params
}

func (d *directory) root() endpoint.Endpoint {
	users := endpoint.NewTable().
		Leaf("list", withParams{action.Func(d.list), listParams}).
		Leaf("get", withParams{action.Func(d.get), idParams}).
		Leaf("create", withParams{action.Checked(action.Func(d.create)), createParams}).
		Leaf("user", withParams{action.Func(d.scope), idParams})

	return endpoint.NewTable().
		Branch("users", users).
		Leaf("health", action.Declare(action.Func(health), action.NoEffect|action.Idempotent|action.Deterministic))
}

func health(input any, log event.Log) (any, error) {
	return "ok", nil
}

func (d *directory) list(input any, log event.Log) (any, error) {
	params, _ := input.(map[string]any)
	wantRole, _ := params["role"].(string)

	out := make([]*user, 0, len(d.users))
	for _, u := range d.users {
		if wantRole == "" || u.Role == wantRole {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *directory) get(input any, log event.Log) (any, error) {
	id := input.(map[string]any)["id"].(int)
	u, ok := d.users[id]
	if !ok {
		return nil, action.Fail(log, event.Errorf("user %d not found", id).At("id").WithCode("not_found"))
	}
	return u, nil
}

func (d *directory) create(input any, log event.Log) (any, error) {
	params := input.(map[string]any)
	name := params["name"].(string)
	if d.byName(name) != nil {
		return nil, action.Fail(log, event.Errorf("name %q is taken", name).At("name").WithCode("taken"))
	}

	u := d.add(name, params["email"].(string), params["role"].(string))
	err := log.Log(event.Success("user created").
		WithDetail("id", u.ID).
		WithDetail("token", ulid.Make().String()))
	if err != nil {
		return nil, err
	}
	return u, nil
}

// scope resolves to an endpoint bound to a single user.
func (d *directory) scope(input any, log event.Log) (any, error) {
	u, err := d.get(input, log)
	if err != nil {
		return nil, err
	}
	return d.userEndpoint(u.(*user)), nil
}

func (d *directory) userEndpoint(u *user) endpoint.Endpoint {
	return endpoint.NewTable().
		Leaf("profile", action.Func(func(input any, log event.Log) (any, error) {
			return u, nil
		})).
		Leaf("rename", withParams{action.Func(func(input any, log event.Log) (any, error) {
			name := input.(map[string]any)["name"].(string)
			if other := d.byName(name); other != nil && other.ID != u.ID {
				return nil, action.Fail(log, event.Errorf("name %q is taken", name).At("name").WithCode("taken"))
			}
			if name == u.Name {
				if err := log.Log(event.Warning("name unchanged").At("name")); err != nil {
					return nil, err
				}
				return u, nil
			}
			u.Name = name
			return u, nil
		}), renameParams})
}
