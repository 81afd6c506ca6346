package storage

import "testing"

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://receipts/2024/01/coffee.png", wantBucket: "receipts", wantObject: "2024/01/coffee.png"},
		{uri: "gs://bucket/file.pdf", wantBucket: "bucket", wantObject: "file.pdf"},
		{uri: "s3://bucket/file.pdf", wantErr: true},
		{uri: "gs://bucket", wantErr: true},
		{uri: "gs://bucket/", wantErr: true},
		{uri: "gs:///file.pdf", wantErr: true},
		{uri: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseURI() = %q, %q, want %q, %q", bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestBuildURI_RoundTrip(t *testing.T) {
	uri := BuildURI("bucket", "uploads/receipt/abc/r.png")
	bucket, object, err := ParseURI(uri)
	if err != nil {
		t.Fatalf("ParseURI(%q) error = %v", uri, err)
	}
	if bucket != "bucket" || object != "uploads/receipt/abc/r.png" {
		t.Errorf("round trip = %q, %q", bucket, object)
	}
}

func TestFilenameFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{uri: "gs://bucket/folder/file.pdf", want: "file.pdf"},
		{uri: "gs://bucket/file.pdf", want: "file.pdf"},
		{uri: "gs://bucket", want: "bucket"},
	}

	for _, tt := range tests {
		if got := FilenameFromURI(tt.uri); got != tt.want {
			t.Errorf("FilenameFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{filename: "receipt.png", want: "uploads/receipt/id1/receipt.png"},
		{filename: "../../etc/passwd", want: "uploads/receipt/id1/passwd"},
		{filename: `C:\scans\bill.pdf`, want: "uploads/receipt/id1/bill.pdf"},
		{filename: "", want: "uploads/receipt/id1/document"},
	}

	for _, tt := range tests {
		if got := ObjectName("receipt", "id1", tt.filename); got != tt.want {
			t.Errorf("ObjectName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
