package graph

import (
	"context"
	_ "embed"
	"errors"

	graphql "github.com/graph-gophers/graphql-go"

	"resume-editor/internal/achievements"
	"resume-editor/internal/resumes"
	"resume-editor/internal/shared/server/middleware"
	"resume-editor/internal/users"
)

//go:embed schema.graphql
var schemaSDL string

var errUnauthenticated = errors.New("You don't have permission to do that.")

// Services are the CRUD services the schema resolves against.
type Services struct {
	Users        *users.Service
	Resumes      *resumes.Service
	Achievements *achievements.Service
}

// Resolver is the root resolver for Query and Mutation.
type Resolver struct {
	svc Services
}

// NewSchema parses the embedded SDL against a root resolver.
func NewSchema(svc Services) (*graphql.Schema, error) {
	return graphql.ParseSchema(schemaSDL, &Resolver{svc: svc},
		graphql.MaxDepth(12),
		graphql.MaxParallelism(8),
	)
}

func requireAuth(ctx context.Context) error {
	id, ok := middleware.IdentityFromContext(ctx)
	if !ok || id.Guest || id.UserID == "" {
		return errUnauthenticated
	}
	return nil
}

// Queries

func (r *Resolver) Users(ctx context.Context) ([]*userResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	list, err := r.svc.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*userResolver, 0, len(list))
	for _, u := range list {
		out = append(out, &userResolver{svc: r.svc, u: u})
	}
	return out, nil
}

func (r *Resolver) User(ctx context.Context, args struct{ ID int32 }) (*userResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	u, err := r.svc.Users.GetByID(ctx, int64(args.ID))
	if errors.Is(err, users.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &userResolver{svc: r.svc, u: u}, nil
}

func (r *Resolver) Resumes(ctx context.Context) ([]*resumeResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	list, err := r.svc.Resumes.List(ctx)
	if err != nil {
		return nil, err
	}
	return wrapResumes(r.svc, list), nil
}

func (r *Resolver) Resume(ctx context.Context, args struct{ ID int32 }) (*resumeResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	res, err := r.svc.Resumes.GetByID(ctx, int64(args.ID))
	if errors.Is(err, resumes.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resumeResolver{svc: r.svc, r: res}, nil
}

func (r *Resolver) Achievements(ctx context.Context, args struct{ ResumeID int32 }) ([]*achievementResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	list, err := r.svc.Achievements.ListByResume(ctx, int64(args.ResumeID))
	if err != nil {
		return nil, err
	}
	return wrapAchievements(r.svc, list), nil
}

func (r *Resolver) Achievement(ctx context.Context, args struct{ ID int32 }) (*achievementResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	a, err := r.svc.Achievements.GetByID(ctx, int64(args.ID))
	if errors.Is(err, achievements.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &achievementResolver{svc: r.svc, a: a}, nil
}

// Mutations

type createUserInput struct {
	Name  *string
	Email string
}

type updateUserInput struct {
	Name  *string
	Email *string
}

func (r *Resolver) CreateUser(ctx context.Context, args struct{ Input createUserInput }) (*userResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	u, err := r.svc.Users.Create(ctx, users.CreateInput{Name: args.Input.Name, Email: args.Input.Email})
	if err != nil {
		return nil, err
	}
	return &userResolver{svc: r.svc, u: u}, nil
}

func (r *Resolver) UpdateUser(ctx context.Context, args struct {
	ID    int32
	Input updateUserInput
}) (*userResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	u, err := r.svc.Users.Update(ctx, int64(args.ID), users.UpdateInput{Name: args.Input.Name, Email: args.Input.Email})
	if err != nil {
		return nil, err
	}
	return &userResolver{svc: r.svc, u: u}, nil
}

func (r *Resolver) DeleteUser(ctx context.Context, args struct{ ID int32 }) (*userResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	u, err := r.svc.Users.Delete(ctx, int64(args.ID))
	if err != nil {
		return nil, err
	}
	return &userResolver{svc: r.svc, u: u, deleted: true}, nil
}

type createResumeInput struct {
	Title  string
	UserID int32
}

type updateResumeInput struct {
	Title  *string
	UserID *int32
}

func (r *Resolver) CreateResume(ctx context.Context, args struct{ Input createResumeInput }) (*resumeResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	res, err := r.svc.Resumes.Create(ctx, resumes.CreateInput{Title: args.Input.Title, UserID: int64(args.Input.UserID)})
	if err != nil {
		return nil, err
	}
	return &resumeResolver{svc: r.svc, r: res}, nil
}

func (r *Resolver) UpdateResume(ctx context.Context, args struct {
	ID    int32
	Input updateResumeInput
}) (*resumeResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	res, err := r.svc.Resumes.Update(ctx, int64(args.ID), resumes.UpdateInput{
		Title:  args.Input.Title,
		UserID: widen(args.Input.UserID),
	})
	if err != nil {
		return nil, err
	}
	return &resumeResolver{svc: r.svc, r: res}, nil
}

func (r *Resolver) DeleteResume(ctx context.Context, args struct{ ID int32 }) (*resumeResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	res, err := r.svc.Resumes.Delete(ctx, int64(args.ID))
	if err != nil {
		return nil, err
	}
	return &resumeResolver{svc: r.svc, r: res}, nil
}

type createAchievementInput struct {
	Body     string
	ResumeID *int32
}

type updateAchievementInput struct {
	Body     *string
	ResumeID *int32
}

func (r *Resolver) CreateAchievement(ctx context.Context, args struct{ Input createAchievementInput }) (*achievementResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	a, err := r.svc.Achievements.Create(ctx, achievements.CreateInput{
		Body:     args.Input.Body,
		ResumeID: widen(args.Input.ResumeID),
	})
	if err != nil {
		return nil, err
	}
	return &achievementResolver{svc: r.svc, a: a}, nil
}

func (r *Resolver) UpdateAchievement(ctx context.Context, args struct {
	ID    int32
	Input updateAchievementInput
}) (*achievementResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	a, err := r.svc.Achievements.Update(ctx, int64(args.ID), achievements.UpdateInput{
		Body:     args.Input.Body,
		ResumeID: widen(args.Input.ResumeID),
	})
	if err != nil {
		return nil, err
	}
	return &achievementResolver{svc: r.svc, a: a}, nil
}

func (r *Resolver) DeleteAchievement(ctx context.Context, args struct{ ID int32 }) (*achievementResolver, error) {
	if err := requireAuth(ctx); err != nil {
		return nil, err
	}
	a, err := r.svc.Achievements.Delete(ctx, int64(args.ID))
	if err != nil {
		return nil, err
	}
	return &achievementResolver{svc: r.svc, a: a}, nil
}

func widen(v *int32) *int64 {
	if v == nil {
		return nil
	}
	w := int64(*v)
	return &w
}
