package graph

import (
	"context"
	"errors"

	"resume-editor/internal/achievements"
	"resume-editor/internal/resumes"
	"resume-editor/internal/users"
)

type userResolver struct {
	svc Services
	u   users.User
	// deleted users resolve empty relations; their rows are gone.
	deleted bool
}

func (r *userResolver) ID() int32 { return int32(r.u.ID) }

func (r *userResolver) Name() *string { return r.u.Name }

func (r *userResolver) Email() string { return r.u.Email }

func (r *userResolver) Resumes(ctx context.Context) ([]*resumeResolver, error) {
	if r.deleted {
		return []*resumeResolver{}, nil
	}
	list, err := r.svc.Resumes.ListByUser(ctx, r.u.ID)
	if err != nil {
		return nil, err
	}
	return wrapResumes(r.svc, list), nil
}

func (r *userResolver) Achievements(ctx context.Context) ([]*achievementResolver, error) {
	if r.deleted {
		return []*achievementResolver{}, nil
	}
	list, err := r.svc.Resumes.ListByUser(ctx, r.u.ID)
	if err != nil {
		return nil, err
	}
	out := []*achievementResolver{}
	for _, res := range list {
		items, err := r.svc.Achievements.ListByResume(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, wrapAchievements(r.svc, items)...)
	}
	return out, nil
}

type resumeResolver struct {
	svc Services
	r   resumes.Resume
}

func wrapResumes(svc Services, list []resumes.Resume) []*resumeResolver {
	out := make([]*resumeResolver, 0, len(list))
	for _, res := range list {
		out = append(out, &resumeResolver{svc: svc, r: res})
	}
	return out
}

func (r *resumeResolver) ID() int32 { return int32(r.r.ID) }

func (r *resumeResolver) Title() string { return r.r.Title }

func (r *resumeResolver) CreatedAt() DateTime { return DateTime{r.r.CreatedAt} }

func (r *resumeResolver) UserID() int32 { return int32(r.r.UserID) }

func (r *resumeResolver) User(ctx context.Context) (*userResolver, error) {
	u, err := r.svc.Users.GetByID(ctx, r.r.UserID)
	if err != nil {
		return nil, err
	}
	return &userResolver{svc: r.svc, u: u}, nil
}

func (r *resumeResolver) Achievements(ctx context.Context) ([]*achievementResolver, error) {
	list, err := r.svc.Achievements.ListByResume(ctx, r.r.ID)
	if err != nil {
		return nil, err
	}
	return wrapAchievements(r.svc, list), nil
}

type achievementResolver struct {
	svc Services
	a   achievements.Achievement
}

func wrapAchievements(svc Services, list []achievements.Achievement) []*achievementResolver {
	out := make([]*achievementResolver, 0, len(list))
	for _, a := range list {
		out = append(out, &achievementResolver{svc: svc, a: a})
	}
	return out
}

func (r *achievementResolver) ID() int32 { return int32(r.a.ID) }

func (r *achievementResolver) Body() string { return r.a.Body }

func (r *achievementResolver) CreatedAt() DateTime { return DateTime{r.a.CreatedAt} }

func (r *achievementResolver) ResumeID() *int32 {
	if r.a.ResumeID == nil {
		return nil
	}
	v := int32(*r.a.ResumeID)
	return &v
}

func (r *achievementResolver) Resume(ctx context.Context) (*resumeResolver, error) {
	if r.a.ResumeID == nil {
		return nil, nil
	}
	res, err := r.svc.Resumes.GetByID(ctx, *r.a.ResumeID)
	if errors.Is(err, resumes.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &resumeResolver{svc: r.svc, r: res}, nil
}
