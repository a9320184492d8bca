package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/bookstore/internal/models"
	"github.com/Skotchmaster/bookstore/internal/transport"
	"github.com/Skotchmaster/bookstore/pkg/util"
)

func (c *cli) categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "categories", Short: "Browse categories"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List categories",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cats, err := c.app.API.Categories.List(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), cats)
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				cat, err := c.app.API.Categories.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), cat)
			},
		},
	)
	return cmd
}

func (c *cli) productsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "products", Short: "Browse and search products"}

	var page, size int
	list := &cobra.Command{
		Use:   "list",
		Short: "List products page by page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.app.API.Products.List(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	list.Flags().IntVar(&page, "page", 1, "Page number")
	list.Flags().IntVar(&size, "size", util.DefaultPageSize, "Page size")

	byID := func(use, short string, fetch func(cmd *cobra.Command, id uint) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				v, err := fetch(cmd, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			},
		}
	}

	cmd.AddCommand(
		list,
		byID("get <id>", "Show one product", func(cmd *cobra.Command, id uint) (any, error) {
			return c.app.API.Products.Get(cmd.Context(), id)
		}),
		byID("details <id>", "Show a product with its reviews", func(cmd *cobra.Command, id uint) (any, error) {
			return c.app.API.Products.Details(cmd.Context(), id)
		}),
		byID("category <id>", "List products of a category", func(cmd *cobra.Command, id uint) (any, error) {
			return c.app.API.Products.ByCategory(cmd.Context(), id)
		}),
		&cobra.Command{
			Use:   "featured",
			Short: "List featured products",
			RunE: func(cmd *cobra.Command, _ []string) error {
				items, err := c.app.API.Products.Featured(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), items)
			},
		},
		c.productsIndexCmd(),
		c.productsSearchCmd(),
	)
	return cmd
}

// productsIndexCmd copies the whole catalog into the local search index.
func (c *cli) productsIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Load every product into the search index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ix, err := c.app.Indexer()
			if err != nil {
				return err
			}

			var all []models.Product
			for page := 1; ; page++ {
				res, err := c.app.API.Products.List(cmd.Context(), page, util.MaxPageSize)
				if err != nil {
					return err
				}
				all = append(all, res.Data...)
				if !res.Meta.HasNext || len(res.Data) == 0 {
					break
				}
			}

			n, err := ix.IndexProducts(cmd.Context(), all)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d products\n", n)
			return nil
		},
	}
}

func (c *cli) productsSearchCmd() *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the local product index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := c.app.Indexer()
			if err != nil {
				return err
			}
			res, err := ix.Search(cmd.Context(), args[0], page, size)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&size, "size", util.DefaultPageSize, "Page size")
	return cmd
}

func (c *cli) reviewsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "reviews", Short: "Read and write product reviews"}

	var req transport.ReviewRequest
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Review a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req.ProductID = id
			review, err := c.app.API.Reviews.Add(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), review)
		},
	}
	add.Flags().IntVar(&req.Rating, "rating", 5, "Rating from 1 to 5")
	add.Flags().StringVar(&req.Comment, "comment", "", "Review text")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <product-id>",
			Short: "List reviews of a product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				reviews, err := c.app.API.Reviews.ByProduct(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), reviews)
			},
		},
		add,
	)
	return cmd
}
