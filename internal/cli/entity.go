package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/hbnb/internal/model"
	"github.com/roach88/hbnb/internal/storage"
)

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <Kind> [key=value...]",
		Short: "Create and save a new instance",
		Long: `Create a new instance of Kind, save it and print its id.

String values are double-quoted with underscores for spaces; numbers are
written bare. Attributes that cannot be parsed are skipped.

Example:
  hbnb create State name="California"
  hbnb create Place city_id=<id> user_id=<id> name="My_little_house" number_rooms=4 latitude=37.77`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(rootOpts, args, cmd)
		},
	}
}

func runCreate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	return withEngine(opts, cmd, func(s *session) error {
		kind, err := parseKind(s.out, args[0])
		if err != nil {
			return err
		}
		attrs, skipped := parseAssignments(args[1:])
		for _, arg := range skipped {
			s.out.VerboseLog("Skipping unparseable attribute %q", arg)
		}

		fresh, err := model.New(kind)
		if err != nil {
			return fail(s.out, storage.MalformedError("create", kind, err))
		}
		rec := fresh.ToMap()
		for k, v := range attrs {
			switch k {
			case "id", "created_at", "updated_at", model.ClassKey:
				s.out.VerboseLog("Ignoring generated attribute %q", k)
				continue
			}
			rec[k] = v
		}
		e, err := model.FromRecord(kind, rec)
		if err != nil {
			return fail(s.out, storage.MalformedError("create", kind, err))
		}

		if err := s.eng.Create(s.ctx, e); err != nil {
			return fail(s.out, err)
		}
		if s.out.Format == "json" {
			return s.out.Success(e.ToMap())
		}
		return s.out.Success(e.Meta().ID)
	})
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <Kind> <id>",
		Short: "Print one instance",
		Long: `Print the instance of Kind with the given id.

Example:
  hbnb show State 9f1c...`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(s *session) error {
				kind, err := parseKind(s.out, args[0])
				if err != nil {
					return err
				}
				e, err := s.lookup(kind, args[1])
				if err != nil {
					return err
				}
				return s.out.Success(present(s.out, e))
			})
		},
	}
}

// NewAllCommand creates the all command.
func NewAllCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "all [Kind]",
		Short: "Print every instance, optionally of one kind",
		Long: `Print every stored instance, or only those of Kind.

Example:
  hbnb all
  hbnb all City --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(s *session) error {
				var kind model.Kind
				if len(args) == 1 {
					k, err := parseKind(s.out, args[0])
					if err != nil {
						return err
					}
					kind = k
				}
				all, err := s.eng.All(s.ctx, kind)
				if err != nil {
					return fail(s.out, err)
				}
				return s.out.Success(presentAll(s.out, values(all)))
			})
		},
	}
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "count [Kind]",
		Short:         "Print the number of instances, optionally of one kind",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(s *session) error {
				var kind model.Kind
				if len(args) == 1 {
					k, err := parseKind(s.out, args[0])
					if err != nil {
						return err
					}
					kind = k
				}
				n, err := s.eng.Count(s.ctx, kind)
				if err != nil {
					return fail(s.out, err)
				}
				return s.out.Success(n)
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <Kind> <id> key=value...",
		Short: "Change attributes of an instance and save it",
		Long: `Apply key=value attributes to an existing instance and save it.

Only attributes the kind allows to change are applied; ids, timestamps and
owner references are ignored. A value of the wrong type rejects the whole
update.

Example:
  hbnb update Place 9f1c... max_guest=6 description="Sea_view"`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(s *session) error {
				kind, err := parseKind(s.out, args[0])
				if err != nil {
					return err
				}
				e, err := s.lookup(kind, args[1])
				if err != nil {
					return err
				}
				attrs, skipped := parseAssignments(args[2:])
				for _, arg := range skipped {
					s.out.VerboseLog("Skipping unparseable attribute %q", arg)
				}
				if err := s.eng.Update(s.ctx, e, model.Patch(attrs)); err != nil {
					return fail(s.out, err)
				}
				return s.out.Success(present(s.out, e))
			})
		},
	}
}

// NewDestroyCommand creates the destroy command.
func NewDestroyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <Kind> <id>",
		Short: "Delete an instance and everything it owns",
		Long: `Delete an instance and save. Deleting a State removes its cities, their
places and those places' reviews; deleting a User removes its places and
reviews; deleting an Amenity only removes its links.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(s *session) error {
				kind, err := parseKind(s.out, args[0])
				if err != nil {
					return err
				}
				e, err := s.lookup(kind, args[1])
				if err != nil {
					return err
				}
				if err := s.eng.Delete(s.ctx, e); err != nil {
					return fail(s.out, err)
				}
				if err := s.eng.Save(s.ctx); err != nil {
					return fail(s.out, err)
				}
				s.out.VerboseLog("Destroyed %s %s", kind, e.Meta().ID)
				return nil
			})
		},
	}
}
