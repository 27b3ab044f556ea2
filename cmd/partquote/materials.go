package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var materialsCmd = &cobra.Command{
	Use:   "materials",
	Short: "List known materials and their cost per cm³",
	Args:  cobra.NoArgs,
	Run:   runMaterials,
}

func init() {
	rootCmd.AddCommand(materialsCmd)
}

func runMaterials(cmd *cobra.Command, args []string) {
	rates := cfg.Rates()

	fmt.Printf("%-2s %-25s %-10s\n", "", "Material", "Rate")
	fmt.Println("--------------------------------------")
	for _, name := range rates.Names() {
		marker := ""
		if name == cfg.DefaultMaterial {
			marker = "*"
		}
		fmt.Printf("%-2s %-25s $%.2f/cm³\n", marker, name, rates[name])
	}
}
