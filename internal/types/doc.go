/*
Package types defines the records shared by the completion core, the candidate
sources and the CLI.

# Candidates

Candidate is what the popup lists and what a commit writes into the script:

	{"name": "Database Name", "reference": "db_name"}

Reference is the token that ends up between the markers. It must be non-empty
and contain no whitespace. Name is the display label. Records without a name
are labelled with their reference.

ValidateCandidates is applied at the fetch boundary. It keeps the first record
for each reference and returns an error for every record it drops, so sources
can log them without failing the fetch.

# Kinds

Kind selects the reference syntax:

	KindVariable  {{ db_name }}
	KindSecret    #!cxtower.secret.db_password!#

# Stored Records

Variable and Key mirror the Tower models that get imported into the local
store. Key carries a KeyType: "s" for secrets, "k" for SSH keys. Only secrets
are offered by default; see config.Settings.SecretKeyType.
*/
package types
