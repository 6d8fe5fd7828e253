// tallyocr reads candidate vote counts from photographed ballot box tally
// sheets and checks them against the declared grand total.
//
// Every ballot box is processed once: its tally-sheet image is downloaded and
// cached, AWS Textract extracts the tables, the candidate counts are matched
// and summed, and the sum is compared with the TOPLAM row. Boxes that
// reconcile stay in verified storage. Boxes that do not are run through a
// secondary OCR provider (Google Document AI or a local Tesseract) and moved
// into quarantine together with searchable review files.
//
// Configuration:
//
// The tool reads an optional YAML configuration file:
//
//	storage_url: "file:///var/lib/tallyocr"
//	lock_dir: "/var/lib/tallyocr/locks"
//	outcome_db: "/var/lib/tallyocr/outcomes.db"
//	workers: 4
//	textract: {region: eu-central-1}
//	secondary: {provider: documentai, project_id: "p", location: "eu", processor_id: "x"}
//	matching: {mode: exact}
//
// Usage:
//
//	tallyocr run --config config.yml --input ballot_box/ [--force]
//	tallyocr reconcile --table textract_table_cm.csv [--fuzzy] [--threshold 40]
//	tallyocr outcomes --config config.yml [--state quarantined]
//	tallyocr review --config config.yml <ballot box id>
//
// Authentication:
//
// AWS credentials are resolved through the default credential chain. Google
// Document AI uses GOOGLE_APPLICATION_CREDENTIALS unless credentials_file is
// set.
//
// Example:
//
//	export GOOGLE_APPLICATION_CREDENTIALS=/path/to/credentials.json
//	tallyocr run -c config.yml -i ballot_box/
//	tallyocr outcomes -c config.yml --state quarantined
package main
