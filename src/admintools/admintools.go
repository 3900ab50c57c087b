package admintools

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jroots/jroots/src/auth"
	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/website"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

func init() {
	adminCommand := &cobra.Command{
		Use:   "admin",
		Short: "Miscellaneous admin commands",
	}
	website.WebsiteCommand.AddCommand(adminCommand)

	addUserCommand := &cobra.Command{
		Use:   "adduser [username] [email] [password]",
		Short: "Create a user account directly, already verified",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 3 {
				fmt.Printf("You must provide a username, an email, and a password.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			username := args[0]
			emailAddress := args[1]
			password := args[2]

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			_, err := conn.Exec(ctx,
				`
				INSERT INTO jroots_user (username, password, email, status)
				VALUES ($1, '', $2, $3)
				`,
				username, emailAddress, models.UserStatusConfirmed,
			)
			if err != nil {
				if db.IsUniqueViolation(err) {
					fmt.Printf("A user with that username or email already exists\n")
					os.Exit(1)
				}
				panic(err)
			}

			err = auth.SetPassword(ctx, conn, username, password)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Created user '%s'\n", username)
		},
	}
	adminCommand.AddCommand(addUserCommand)

	setPasswordCommand := &cobra.Command{
		Use:   "setpassword [username] [new password]",
		Short: "Replace a user's password",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a username and a password.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			username := args[0]
			password := args[1]

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			canonicalUsername := lookupUsername(ctx, conn, username)

			hashedPassword := auth.HashPassword(password)

			err := auth.UpdatePassword(ctx, conn, canonicalUsername, hashedPassword)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Successfully updated password for '%s'\n", canonicalUsername)
		},
	}
	adminCommand.AddCommand(setPasswordCommand)

	makeAdminCommand := &cobra.Command{
		Use:   "makeadmin [username]",
		Short: "Grant admin rights to a user",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a username.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			username := args[0]

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			canonicalUsername := lookupUsername(ctx, conn, username)

			_, err := conn.Exec(ctx, "UPDATE jroots_user SET is_admin = TRUE WHERE username = $1", canonicalUsername)
			if err != nil {
				panic(err)
			}

			fmt.Printf("'%s' is now an admin\n", canonicalUsername)
		},
	}
	adminCommand.AddCommand(makeAdminCommand)

	activateUserCommand := &cobra.Command{
		Use:   "activateuser [username]",
		Short: "Mark a user's email as verified manually",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide a username.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			username := args[0]

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			canonicalUsername := lookupUsername(ctx, conn, username)

			_, err := conn.Exec(ctx,
				"UPDATE jroots_user SET status = $1 WHERE username = $2",
				models.UserStatusConfirmed, canonicalUsername,
			)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Activated user '%s'\n", canonicalUsername)
		},
	}
	adminCommand.AddCommand(activateUserCommand)
}

func lookupUsername(ctx context.Context, conn *pgx.Conn, username string) string {
	row := conn.QueryRow(ctx, "SELECT username FROM jroots_user WHERE LOWER(username) = LOWER($1)", username)
	var canonicalUsername string
	err := row.Scan(&canonicalUsername)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			fmt.Printf("User '%s' not found\n", username)
			os.Exit(1)
		} else {
			panic(err)
		}
	}
	return canonicalUsername
}
