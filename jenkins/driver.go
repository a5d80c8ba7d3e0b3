package jenkins

import "context"

// Builder triggers a build of a single project.
type Builder interface {
	Build(ctx context.Context, project string) error
}

// BuildAll builds projects in order and stops at the first failure.
func BuildAll(ctx context.Context, b Builder, projects []string) error {
	for _, project := range projects {
		if err := b.Build(ctx, project); err != nil {
			return err
		}
	}
	return nil
}
