package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// CredentialRegistryABI is the external call contract of the credential registry
// contract. Only the declared functions and events are consumed; the contract's
// storage layout is opaque to this package.
const CredentialRegistryABI = `[
	{"inputs":[{"internalType":"address","name":"_endorser","type":"address"}],"name":"addEndorser","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"student","type":"address"},{"indexed":false,"internalType":"string","name":"ipfsHash","type":"string"}],"name":"DocumentUploaded","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"student","type":"address"},{"indexed":false,"internalType":"string","name":"ipfsHash","type":"string"},{"indexed":false,"internalType":"address","name":"endorser","type":"address"}],"name":"Endorsed","type":"event"},
	{"inputs":[{"internalType":"address","name":"_student","type":"address"},{"internalType":"uint256","name":"_docIndex","type":"uint256"}],"name":"endorseDocument","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"string","name":"_name","type":"string"},{"internalType":"string","name":"_uniqueID","type":"string"}],"name":"registerStudent","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"string","name":"_ipfsHash","type":"string"},{"internalType":"string","name":"_docType","type":"string"},{"internalType":"uint256","name":"_weightage","type":"uint256"}],"name":"uploadDocument","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"","type":"address"}],"name":"endorsers","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"_student","type":"address"},{"internalType":"uint256","name":"_docIndex","type":"uint256"}],"name":"getEndorsements","outputs":[{"internalType":"address[]","name":"","type":"address[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"_student","type":"address"}],"name":"getStudentDocuments","outputs":[{"components":[{"internalType":"string","name":"ipfsHash","type":"string"},{"internalType":"string","name":"docType","type":"string"},{"internalType":"uint256","name":"timestamp","type":"uint256"},{"internalType":"uint256","name":"weightage","type":"uint256"},{"internalType":"address[]","name":"endorsements","type":"address[]"}],"internalType":"struct EduVerify.Document[]","name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"_user","type":"address"}],"name":"isStudentRegistered","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"string","name":"","type":"string"}],"name":"studentByID","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"","type":"address"},{"internalType":"uint256","name":"","type":"uint256"}],"name":"studentDocuments","outputs":[{"internalType":"string","name":"ipfsHash","type":"string"},{"internalType":"string","name":"docType","type":"string"},{"internalType":"uint256","name":"timestamp","type":"uint256"},{"internalType":"uint256","name":"weightage","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"","type":"address"}],"name":"students","outputs":[{"internalType":"string","name":"name","type":"string"},{"internalType":"string","name":"uniqueID","type":"string"},{"internalType":"address","name":"wallet","type":"address"},{"internalType":"bool","name":"exists","type":"bool"}],"stateMutability":"view","type":"function"}
]`

// Contract method names.
const (
	methodRegisterStudent     = "registerStudent"
	methodUploadDocument      = "uploadDocument"
	methodEndorseDocument     = "endorseDocument"
	methodAddEndorser         = "addEndorser"
	methodIsStudentRegistered = "isStudentRegistered"
	methodStudentByID         = "studentByID"
	methodGetStudentDocuments = "getStudentDocuments"
	methodGetEndorsements     = "getEndorsements"
	methodStudents            = "students"
	methodEndorsers           = "endorsers"
)

// Contract event names.
const (
	eventDocumentUploaded = "DocumentUploaded"
	eventEndorsed         = "Endorsed"
)

// ParsedABI returns the parsed credential registry ABI.
func ParsedABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(CredentialRegistryABI))
}
