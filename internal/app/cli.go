package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/lookatme/backend/internal/admin"
	"github.com/lookatme/backend/internal/db"
	"github.com/lookatme/backend/internal/friends"
	"github.com/lookatme/backend/internal/models"
	"github.com/lookatme/backend/internal/posts"
	"github.com/lookatme/backend/internal/repositories"
	"github.com/lookatme/backend/internal/seed"
)

func runMigrations(ctx context.Context, args []string, out io.Writer) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	rt, err := bootstrap(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	switch command {
	case "up":
		if err := db.MigrateUp(ctx, rt.conn, rt.cfg.DBDriver); err != nil {
			return err
		}
	case "down":
		if err := db.MigrateDown(ctx, rt.conn, rt.cfg.DBDriver); err != nil {
			return err
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate command %q (want up, down or status)", command)
	}

	version, err := db.MigrationVersion(ctx, rt.conn, rt.cfg.DBDriver)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema version %d\n", version)
	return nil
}

func runSeed(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(out)
	numUsers := fs.Int("users", 20, "number of users to create")
	numFriends := fs.Int("friends", 3, "friend requests sent by each user")
	numPosts := fs.Int("posts", 5, "posts written by each user")
	rngSeed := fs.Int64("seed", 0, "random seed; 0 picks one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := bootstrap(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := db.MigrateUp(ctx, rt.conn, rt.cfg.DBDriver); err != nil {
		return err
	}

	factory := seed.NewFactory(
		repositories.NewSQLUserRepository(rt.conn),
		friends.NewService(repositories.NewSQLFriendRepository(rt.conn)),
		posts.NewService(repositories.NewSQLPostRepository(rt.conn)),
		*rngSeed,
	)
	res, err := factory.Run(ctx, seed.Options{
		Users:          *numUsers,
		FriendsPerUser: *numFriends,
		PostsPerUser:   *numPosts,
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	fmt.Fprintf(out, "created %d users, %d friendships (%d pending), %d posts\n",
		res.Users, res.Accepted, res.Pending, res.Posts)
	fmt.Fprintf(out, "sign in as %s with password %q\n", res.FirstUser, seed.DefaultPassword)
	return nil
}

func runChangeRole(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errors.New("usage: change-role <email> <role>")
	}

	rt, err := bootstrap(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	users := repositories.NewSQLUserRepository(rt.conn)
	svc := admin.NewService(users, repositories.NewSQLPostRepository(rt.conn))

	user, err := svc.ChangeRoleByEmail(ctx, args[0], args[1])
	switch {
	case errors.Is(err, admin.ErrInvalidRole):
		return fmt.Errorf("invalid role %q (want one of %v)", args[1], models.Roles)
	case errors.Is(err, admin.ErrNotFound):
		return fmt.Errorf("no user with email %q", args[0])
	case err != nil:
		return err
	}

	fmt.Fprintf(out, "%s (%d) is now %s\n", user.Email, user.ID, user.Role)
	return nil
}

func runListUsers(ctx context.Context, out io.Writer) error {
	rt, err := bootstrap(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	svc := admin.NewService(repositories.NewSQLUserRepository(rt.conn), repositories.NewSQLPostRepository(rt.conn))
	users, err := svc.ListUsers(ctx)
	if err != nil {
		return err
	}
	return writeUserTable(out, users)
}

func writeUserTable(out io.Writer, users []models.User) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tSTATUS\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Name, u.Email, u.Role, u.Status, u.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}
