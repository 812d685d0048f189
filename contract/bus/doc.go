/*
Package bus holds the contracts shared by the dispatcher, the product handlers
and the notification sink adapters. It has no dependencies beyond the standard
library so adapters can import it without pulling the dispatcher in.
*/
package bus
