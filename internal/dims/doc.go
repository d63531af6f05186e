// Package dims defines the value domain and dimension algebra of tally.
//
// Every other internal package manipulates these types; dims imports
// nothing internal, keeping it the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Value is a closed tagged union; switches over Kind and DistKind must
//     be exhaustive (the language fixes both sets)
//   - Dimensions are nominal over tags: Currency<USD> != Currency<EUR>,
//     Count<Customer> != Count<Order>
//   - No atom exponent may exceed 1 in magnitude; Currency^2 is
//     unrepresentable and composition rejects it
//   - Values are immutable once produced
package dims
