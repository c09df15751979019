package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hbnb/internal/model"
)

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link <place_id> <amenity_id>",
		Short: "Attach an amenity to a place",
		Long: `Attach an amenity to a place and save. Both must exist; linking an
already linked pair changes nothing.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(s *session) error {
				if err := s.eng.LinkAmenity(s.ctx, args[0], args[1]); err != nil {
					return fail(s.out, err)
				}
				if err := s.eng.Save(s.ctx); err != nil {
					return fail(s.out, err)
				}
				return s.out.Success(presentLink(s.out, args[0], args[1], "linked to"))
			})
		},
	}
}

// NewUnlinkCommand creates the unlink command.
func NewUnlinkCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "unlink <place_id> <amenity_id>",
		Short:         "Detach an amenity from a place",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(s *session) error {
				if err := s.eng.UnlinkAmenity(s.ctx, args[0], args[1]); err != nil {
					return fail(s.out, err)
				}
				if err := s.eng.Save(s.ctx); err != nil {
					return fail(s.out, err)
				}
				return s.out.Success(presentLink(s.out, args[0], args[1], "unlinked from"))
			})
		},
	}
}

// NewChildrenCommand creates the children command.
func NewChildrenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "children <Kind> <id> <ChildKind>",
		Short: "Print the instances owned by a parent",
		Long: `Print the ChildKind instances that reference the given parent.

Example:
  hbnb children State 9f1c... City
  hbnb children User 41aa... Review`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(s *session) error {
				parent, err := parseKind(s.out, args[0])
				if err != nil {
					return err
				}
				child, err := parseKind(s.out, args[2])
				if err != nil {
					return err
				}
				if _, ok := model.RelationBetween(parent, child); !ok {
					return usage(s.out, fmt.Sprintf("%s has no %s children", parent, child))
				}
				if _, err := s.lookup(parent, args[1]); err != nil {
					return err
				}
				children, err := s.eng.Children(s.ctx, parent, args[1], child)
				if err != nil {
					return fail(s.out, err)
				}
				return s.out.Success(presentAll(s.out, values(children)))
			})
		},
	}
}

// NewAmenitiesCommand creates the amenities command.
func NewAmenitiesCommand(rootOpts *RootOptions) *cobra.Command {
	var reverse bool
	cmd := &cobra.Command{
		Use:   "amenities <place_id>",
		Short: "Print the amenities of a place",
		Long: `Print the amenities linked to a place, or with --places the places
linked to an amenity.

Example:
  hbnb amenities 9f1c...
  hbnb amenities --places 41aa...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(s *session) error {
				if reverse {
					if _, err := s.lookup(model.KindAmenity, args[0]); err != nil {
						return err
					}
					places, err := s.eng.PlacesWith(s.ctx, args[0])
					if err != nil {
						return fail(s.out, err)
					}
					return s.out.Success(presentAll(s.out, places))
				}

				if _, err := s.lookup(model.KindPlace, args[0]); err != nil {
					return err
				}
				amenities, err := s.eng.AmenitiesOf(s.ctx, args[0])
				if err != nil {
					return fail(s.out, err)
				}
				return s.out.Success(presentAll(s.out, amenities))
			})
		},
	}
	cmd.Flags().BoolVar(&reverse, "places", false, "treat the argument as an amenity id and list its places")
	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Print the number of instances of every kind",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(rootOpts, cmd, func(s *session) error {
				stats, err := s.eng.Stats(s.ctx)
				if err != nil {
					return fail(s.out, err)
				}
				if s.out.Format == "json" {
					byTable := make(map[string]int, len(stats))
					for k, n := range stats {
						byTable[k.Table()] = n
					}
					return s.out.Success(byTable)
				}
				lines := make([]string, 0, len(model.Kinds))
				for _, k := range model.Kinds {
					lines = append(lines, fmt.Sprintf("%s: %d", k.Table(), stats[k]))
				}
				return s.out.Success(lines)
			})
		},
	}
}


func presentLink(out *OutputFormatter, placeID, amenityID, verb string) any {
	if out.Format == "json" {
		return model.Link{PlaceID: placeID, AmenityID: amenityID}
	}
	return fmt.Sprintf("Amenity %s %s Place %s", amenityID, verb, placeID)
}
